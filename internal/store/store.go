package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	glerr "github.com/roach88/graphlite/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - empty database
// 1 - global tables Schema, Field, Element, Connection
const currentSchemaVersion = 1

// Supported database/sql driver names.
const (
	DriverMattn   = "sqlite3"
	DriverModernc = "sqlite"
)

// Options configures Open.
type Options struct {
	Driver      string
	JournalMode string
	BusyTimeout time.Duration
	Logger      *slog.Logger
}

// Option mutates Options.
type Option func(*Options)

func WithDriver(name string) Option {
	return func(o *Options) { o.Driver = name }
}

func WithJournalMode(mode string) Option {
	return func(o *Options) { o.JournalMode = mode }
}

func WithBusyTimeout(d time.Duration) Option {
	return func(o *Options) { o.BusyTimeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func defaultOptions() Options {
	return Options{
		Driver:      DriverMattn,
		JournalMode: "WAL",
		BusyTimeout: 5 * time.Second,
		Logger:      slog.Default(),
	}
}

// Store is the SQLite connection shared by every graphlite operation.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// Open creates or opens a SQLite database at the given path. ":memory:"
// opens a private in-memory database.
//
// Open applies the pragmas listed in the package documentation and creates
// the global tables. It is idempotent.
func Open(path string, opts ...Option) (*Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Driver != DriverMattn && o.Driver != DriverModernc {
		return nil, glerr.New(glerr.CodeStoreDriverUnsupported,
			fmt.Sprintf("unsupported driver %q (want %q or %q)", o.Driver, DriverMattn, DriverModernc))
	}

	db, err := sql.Open(o.Driver, path)
	if err != nil {
		return nil, glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to open database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to connect to database")
	}

	// One connection: SQLite has a single writer, and pragmas plus
	// in-memory databases are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, driver: o.Driver, logger: o.Logger}
	if err := s.applyPragmas(o); err != nil {
		db.Close()
		return nil, glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to apply pragmas")
	}
	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to apply schema")
	}

	s.logger.Debug("store opened",
		slog.String("path", path),
		slog.String("driver", o.Driver),
		slog.String("journal_mode", o.JournalMode))
	return s, nil
}

// NewFromDB wraps an existing handle without applying pragmas or schema.
// It exists for tests that drive the store through go-sqlmock.
func NewFromDB(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, driver: DriverMattn, logger: logger}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string { return s.driver }

func (s *Store) Logger() *slog.Logger { return s.logger }

func (s *Store) applyPragmas(o Options) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA journal_mode = %s", o.JournalMode),
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", o.BusyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates the global tables and records the layout version.
func (s *Store) applySchema() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database layout version %d is newer than supported version %d",
			version, currentSchemaVersion)
	}

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(ctx context.Context, name, expected string) error {
	var value string
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
