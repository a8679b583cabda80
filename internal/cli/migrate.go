package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/graphlite"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	DB               string
	DeleteOnConflict bool
	DryRun           bool
}

// MigrateResult describes a migration run.
type MigrateResult struct {
	Database string   `json:"database"`
	DryRun   bool     `json:"dry_run"`
	Steps    []string `json:"steps"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate [schemas-dir]",
		Short: "Bring a database in line with the declared schemas",
		Long: `Open a database with the CUE schema declarations of a directory: new
schemas are created and schemas that are no longer declared are dropped
together with their elements, all in one transaction.

A schema whose persisted fields differ from its declaration at the same
version is a conflict. It fails the migration unless --delete-on-conflict
is set, in which case the schema and its elements are recreated.

With --dry-run the planned steps are printed and nothing is changed.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "database path (defaults to database.path)")
	cmd.Flags().BoolVar(&opts.DeleteOnConflict, "delete-on-conflict", false, "recreate conflicting schemas, deleting their elements")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the plan without changing the database")

	return cmd
}

func runMigrate(rootOpts *RootOptions, opts *MigrateOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)
	ctx := cmd.Context()

	cfg, err := rootOpts.settings()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	dir := cfg.Schemas.Dir
	if len(args) == 1 {
		dir = args[0]
	}
	path := rootOpts.databasePath(opts.DB)

	schemas, err := BuildSchemas(dir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Message)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	formatter.VerboseLog("Loaded %d schema(s) from %s", len(schemas), dir)

	target := path
	if _, err := os.Stat(path); os.IsNotExist(err) && opts.DryRun {
		// A dry run never creates the file.
		target = ":memory:"
	}

	b := rootOpts.builder(target, formatter.GetErrWriter(),
		graphlite.WithDeleteOnSchemaConflict(opts.DeleteOnConflict || cfg.Schemas.DeleteOnConflict))
	if err := b.Register(schemas...); err != nil {
		return databaseError(formatter, err)
	}

	plan, err := b.Plan(ctx)
	if err != nil {
		return databaseError(formatter, err)
	}
	result := MigrateResult{Database: path, DryRun: opts.DryRun, Steps: plan.Describe()}
	if result.Steps == nil {
		result.Steps = []string{}
	}

	if !opts.DryRun {
		db, err := b.Open(ctx)
		if err != nil {
			return databaseError(formatter, err)
		}
		if err := db.Close(); err != nil {
			return databaseError(formatter, err)
		}
	}

	return outputMigrate(formatter, result)
}

func outputMigrate(formatter *OutputFormatter, result MigrateResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	switch {
	case len(result.Steps) == 0:
		fmt.Fprintf(formatter.Writer, "✓ %s is up to date\n", result.Database)
		return nil
	case result.DryRun:
		fmt.Fprintf(formatter.Writer, "Plan for %s:\n", result.Database)
	default:
		fmt.Fprintf(formatter.Writer, "✓ Migrated %s\n", result.Database)
	}
	for _, step := range result.Steps {
		fmt.Fprintf(formatter.Writer, "  %s\n", step)
	}
	return nil
}
