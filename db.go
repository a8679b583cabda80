package graphlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/graphlite/internal/querysql"
	"github.com/roach88/graphlite/internal/store"
	glerr "github.com/roach88/graphlite/pkg/errors"
	"github.com/roach88/graphlite/schema"
)

// DB is an open graph database. It is safe for concurrent use; all access
// goes through a single SQLite connection.
//
// Every method takes a context. Inside DB.Transaction, the context passed
// to the callback carries the transaction and every call made with it joins
// that transaction.
type DB struct {
	store    *store.Store
	logger   *slog.Logger
	compiler *querysql.Compiler

	mu      sync.RWMutex
	schemas map[string]*schema.Schema // by "handle@version"
}

// Close closes the database.
func (db *DB) Close() error {
	return db.store.Close()
}

// Transaction runs fn in a transaction. A call made while ctx already
// carries a transaction joins it; only the outermost call commits or rolls
// back. fn must use the context it is given.
func (db *DB) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.store.Transaction(ctx, fn)
}

// remember records a schema object so elements read back from storage carry
// the caller's schema, validators included, rather than a rebuilt copy.
// The first object recorded for a version wins.
func (db *DB) remember(s *schema.Schema) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.schemas == nil {
		db.schemas = make(map[string]*schema.Schema)
	}
	if _, ok := db.schemas[s.String()]; !ok {
		db.schemas[s.String()] = s
	}
}

// known returns the recorded schema matching s structurally, or s itself.
func (db *DB) known(s *schema.Schema) *schema.Schema {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if k, ok := db.schemas[s.String()]; ok && k.SameFields(s) {
		return k
	}
	return s
}

// element is the Element row of a handle.
type element struct {
	id       string
	handle   string
	schemaID string
	typ      string
}

// lookup reads the Element row of handle. It returns nil when absent.
func (db *DB) lookup(ctx context.Context, handle string) (*element, error) {
	e := element{handle: handle}
	err := db.store.QueryRow(ctx, "SELECT id, schemaId, type FROM Element WHERE handle = ?", handle).
		Scan(&e.id, &e.schemaID, &e.typ)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to look up element",
			glerr.FieldHandle(handle))
	}
	return &e, nil
}

// schemaOf returns the schema an element is stored under.
func (db *DB) schemaOf(ctx context.Context, e *element) (*schema.Schema, map[string]string, error) {
	p, ok, err := catalog{db}.byID(ctx, e.schemaID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, glerr.New(glerr.CodeGraphSchemaNotFound,
			"element references a missing schema", glerr.FieldHandle(e.handle))
	}
	return db.known(p.Schema), p.FieldIDs, nil
}

func (db *DB) countElements(ctx context.Context, schemaID string) (int, error) {
	var n int
	if err := db.store.QueryRow(ctx, "SELECT COUNT(*) FROM Element WHERE schemaId = ?", schemaID).Scan(&n); err != nil {
		return 0, glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to count elements")
	}
	return n, nil
}
