package graphlite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/graphlite/internal/migrate"
	"github.com/roach88/graphlite/internal/querysql"
	"github.com/roach88/graphlite/internal/store"
	glerr "github.com/roach88/graphlite/pkg/errors"
	"github.com/roach88/graphlite/schema"
)

// MigrationFunc moves the elements of one schema version to the next. It
// runs inside the transaction of Builder.Open and uses db like any caller.
type MigrationFunc func(ctx context.Context, db *DB) error

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used by the database. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithDeleteOnSchemaConflict drops and recreates a schema whose fields
// changed without a version bump, losing its elements. Without it such a
// schema makes Open fail.
func WithDeleteOnSchemaConflict(enabled bool) Option {
	return func(b *Builder) { b.deleteOnConflict = enabled }
}

// WithDriver selects the database/sql driver: "sqlite3" (default) or "sqlite".
func WithDriver(name string) Option {
	return func(b *Builder) { b.storeOpts = append(b.storeOpts, store.WithDriver(name)) }
}

// WithJournalMode sets the journal_mode pragma. Default: WAL.
func WithJournalMode(mode string) Option {
	return func(b *Builder) { b.storeOpts = append(b.storeOpts, store.WithJournalMode(mode)) }
}

// WithBusyTimeout sets the busy_timeout pragma. Default: 5s.
func WithBusyTimeout(d time.Duration) Option {
	return func(b *Builder) { b.storeOpts = append(b.storeOpts, store.WithBusyTimeout(d)) }
}

// Builder collects the declared schemas and migrations of a database and
// opens it.
//
//	b := graphlite.NewBuilder("graph.db")
//	if err := b.Register(person, likes); err != nil { ... }
//	if err := b.Migration(personV1, person, splitName); err != nil { ... }
//	db, err := b.Open(ctx)
type Builder struct {
	path             string
	logger           *slog.Logger
	deleteOnConflict bool
	storeOpts        []store.Option

	schemas    []*schema.Schema
	registered map[string]*schema.Schema
	steps      migrate.Registry
	callbacks  map[string]MigrationFunc
}

// NewBuilder returns a builder for the database at path. ":memory:" opens
// a private in-memory database.
func NewBuilder(path string, opts ...Option) *Builder {
	b := &Builder{
		path:       path,
		logger:     slog.Default(),
		registered: make(map[string]*schema.Schema),
		steps:      migrate.Registry{},
		callbacks:  make(map[string]MigrationFunc),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register declares schemas and freezes them. A handle may be registered
// once, at the version the database is opened with.
func (b *Builder) Register(schemas ...*schema.Schema) error {
	for _, s := range schemas {
		if prev, ok := b.registered[s.Handle()]; ok {
			return glerr.New(glerr.CodeMigrationRegisterInvalid,
				fmt.Sprintf("schema %q is already registered as %s", s.Handle(), prev),
				glerr.FieldSchema(s.Handle(), s.Version())...)
		}
		s.Freeze()
		b.registered[s.Handle()] = s
		b.schemas = append(b.schemas, s)
	}
	return nil
}

// Migration registers fn as the step from one version of a schema to the
// next. Both schemas are frozen.
func (b *Builder) Migration(from, to *schema.Schema, fn MigrationFunc) error {
	if fn == nil {
		return glerr.New(glerr.CodeMigrationStepInvalid,
			fmt.Sprintf("migration from %s to %s has no function", from, to))
	}
	if err := b.steps.Add(from, to); err != nil {
		return err
	}
	from.Freeze()
	to.Freeze()
	b.callbacks[to.String()] = fn
	return nil
}

// Open opens the database and reconciles the registered schemas with the
// persisted ones in one transaction: it creates new schemas, runs the
// migrations of upgraded ones in version order and drops what is no longer
// declared. Configuration errors are reported before storage changes.
func (b *Builder) Open(ctx context.Context) (*DB, error) {
	db, err := b.newDB()
	if err != nil {
		return nil, err
	}

	err = db.store.Transaction(ctx, func(ctx context.Context) error {
		persisted, err := catalog{db}.load(ctx)
		if err != nil {
			return err
		}
		plan, err := migrate.Build(b.schemas, persisted, b.steps, b.deleteOnConflict)
		if err != nil {
			return err
		}
		return b.apply(ctx, db, plan)
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Attach opens the database as it is, without reconciling schemas. It is
// meant for inspection: nothing is created or dropped, and elements can only
// be written under schemas that are already persisted.
func (b *Builder) Attach(ctx context.Context) (*DB, error) {
	db, err := b.newDB()
	if err != nil {
		return nil, err
	}
	if _, err := (catalog{db}).load(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Plan reports what Open would do without changing the database.
func (b *Builder) Plan(ctx context.Context) (*migrate.Plan, error) {
	db, err := b.newDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	persisted, err := catalog{db}.load(ctx)
	if err != nil {
		return nil, err
	}
	return migrate.Build(b.schemas, persisted, b.steps, b.deleteOnConflict)
}

func (b *Builder) newDB() (*DB, error) {
	st, err := store.Open(b.path, append([]store.Option{store.WithLogger(b.logger)}, b.storeOpts...)...)
	if err != nil {
		return nil, err
	}

	db := &DB{store: st, logger: b.logger, schemas: make(map[string]*schema.Schema)}
	db.compiler = querysql.NewCompiler(catalog{db})
	for _, s := range b.schemas {
		db.schemas[s.String()] = s
	}
	for _, versions := range b.steps {
		for _, step := range versions {
			db.remember(step.From)
			db.remember(step.To)
		}
	}
	return db, nil
}

func (b *Builder) apply(ctx context.Context, db *DB, plan *migrate.Plan) error {
	cat := catalog{db}

	for _, p := range plan.Recreate {
		b.logger.Info("recreating schema after conflict", slog.String("schema", p.String()))
		if err := cat.drop(ctx, p); err != nil {
			return err
		}
	}
	for _, s := range plan.Create {
		if _, err := cat.insert(ctx, s); err != nil {
			return err
		}
		b.logger.Debug("schema created", slog.String("schema", s.String()))
	}

	for _, up := range plan.Upgrades {
		if err := b.upgrade(ctx, db, up); err != nil {
			return err
		}
	}

	for _, p := range plan.Retire {
		if err := retire(ctx, db, p); err != nil {
			return err
		}
	}
	for _, p := range plan.Undeclared {
		b.logger.Info("dropping undeclared schema", slog.String("schema", p.String()))
		if err := cat.drop(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// upgrade creates every version after the stored one, runs the steps in
// order and drops the versions left behind, which must hold no elements.
func (b *Builder) upgrade(ctx context.Context, db *DB, up migrate.Upgrade) error {
	cat := catalog{db}

	superseded := []migrate.Persisted{up.Stored}
	for _, s := range up.Intermediates() {
		p, err := cat.insert(ctx, s)
		if err != nil {
			return err
		}
		superseded = append(superseded, p)
	}
	if _, err := cat.insert(ctx, up.Target); err != nil {
		return err
	}

	for _, step := range up.Steps {
		b.logger.Info("running migration",
			slog.String("schema", step.To.Handle()),
			slog.Int("from", step.From.Version()),
			slog.Int("to", step.To.Version()))
		if err := b.callbacks[step.To.String()](ctx, db); err != nil {
			if glerr.CodeOf(err) != "" {
				return glerr.With(err, glerr.FieldSchema(step.To.Handle(), step.To.Version())...)
			}
			return glerr.Wrap(err, glerr.CodeMigrationCallbackFailure,
				fmt.Sprintf("migration from %s to %s failed", step.From, step.To),
				glerr.FieldSchema(step.To.Handle(), step.To.Version())...)
		}
	}

	for _, p := range superseded {
		if err := retire(ctx, db, p); err != nil {
			return err
		}
	}
	return nil
}

// retire drops a superseded schema version once no element uses it.
func retire(ctx context.Context, db *DB, p migrate.Persisted) error {
	left, err := db.countElements(ctx, p.ID)
	if err != nil {
		return err
	}
	if left > 0 {
		return glerr.New(glerr.CodeMigrationNotMigrated,
			fmt.Sprintf("values not migrated: %d elements still use schema %s", left, p),
			append(glerr.FieldSchema(p.Schema.Handle(), p.Schema.Version()), glerr.Field("elements", left))...)
	}
	db.logger.Debug("schema retired", slog.String("schema", p.String()))
	return catalog{db}.drop(ctx, p)
}
