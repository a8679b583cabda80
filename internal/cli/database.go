package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/roach88/graphlite"
	glerr "github.com/roach88/graphlite/pkg/errors"
)

// databasePath returns the --db flag value or the configured path.
func (o *RootOptions) databasePath(flag string) string {
	if flag != "" {
		return flag
	}
	return o.Config.Database.Path
}

// builder returns a builder for path configured from the database and log
// sections. Logs go to w.
func (o *RootOptions) builder(path string, w io.Writer, extra ...graphlite.Option) *graphlite.Builder {
	db := o.Config.Database
	opts := []graphlite.Option{
		graphlite.WithDriver(db.Driver),
		graphlite.WithJournalMode(db.JournalMode),
		graphlite.WithBusyTimeout(db.BusyTimeout),
		graphlite.WithLogger(o.logger(w)),
	}
	return graphlite.NewBuilder(path, append(opts, extra...)...)
}

// attach opens an existing database for inspection. A missing file is a
// command error rather than an empty database.
func attach(ctx context.Context, opts *RootOptions, formatter *OutputFormatter, flag string) (*graphlite.DB, error) {
	if _, err := opts.settings(); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	path := opts.databasePath(flag)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", path))
	}

	formatter.VerboseLog("Attaching %s", path)
	db, err := opts.builder(path, formatter.GetErrWriter()).Attach(ctx)
	if err != nil {
		return nil, databaseError(formatter, err)
	}
	return db, nil
}

// databaseError reports a library error with its code in the message.
func databaseError(formatter *OutputFormatter, err error) error {
	message := err.Error()
	if code := glerr.CodeOf(err); code != "" {
		message = fmt.Sprintf("%s (%s)", message, code)
	}
	exit := ExitCommandError
	if glerr.IsConfiguration(err) {
		exit = ExitFailure
	}
	return formatter.Fail(exit, ErrCodeDatabase, message)
}
