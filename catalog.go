package graphlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/graphlite/internal/layout"
	"github.com/roach88/graphlite/internal/migrate"
	"github.com/roach88/graphlite/internal/store"
	glerr "github.com/roach88/graphlite/pkg/errors"
	"github.com/roach88/graphlite/schema"
)

// catalog reads and writes the Schema and Field tables and creates or drops
// the per-field value tables. Every method runs on the transaction carried
// by ctx, if any.
type catalog struct{ db *DB }

type fieldRow struct {
	id, handle, code string
}

// load returns every persisted schema, rebuilt from its Field rows.
func (c catalog) load(ctx context.Context) ([]migrate.Persisted, error) {
	rows, err := c.db.store.Query(ctx, "SELECT id, handle, version FROM Schema ORDER BY handle, version")
	if err != nil {
		return nil, err
	}
	type schemaRow struct {
		id, handle string
		version    int
	}
	var found []schemaRow
	for rows.Next() {
		var r schemaRow
		if err := rows.Scan(&r.id, &r.handle, &r.version); err != nil {
			rows.Close()
			return nil, glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to scan schema")
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to read schemas")
	}
	rows.Close()

	out := make([]migrate.Persisted, 0, len(found))
	for _, r := range found {
		p, err := c.rebuild(ctx, r.id, r.handle, r.version)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// byID rebuilds one persisted schema. It returns false when id is unknown.
func (c catalog) byID(ctx context.Context, id string) (migrate.Persisted, bool, error) {
	var (
		handle  string
		version int
	)
	err := c.db.store.QueryRow(ctx, "SELECT handle, version FROM Schema WHERE id = ?", id).Scan(&handle, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return migrate.Persisted{}, false, nil
	}
	if err != nil {
		return migrate.Persisted{}, false, glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to read schema")
	}
	p, err := c.rebuild(ctx, id, handle, version)
	return p, err == nil, err
}

func (c catalog) rebuild(ctx context.Context, id, handle string, version int) (migrate.Persisted, error) {
	fields, err := c.fields(ctx, id)
	if err != nil {
		return migrate.Persisted{}, err
	}
	s := schema.New(handle, version)
	ids := make(map[string]string, len(fields))
	for _, f := range fields {
		t, err := schema.ParseFieldType(f.code)
		if err != nil {
			return migrate.Persisted{}, glerr.Wrap(err, glerr.CodeStoreLayoutInvalid,
				fmt.Sprintf("schema %s has a corrupt field %q", s, f.handle))
		}
		if _, err := s.AddField(f.handle, t); err != nil {
			return migrate.Persisted{}, err
		}
		ids[f.handle] = f.id
	}
	s.Freeze()
	return migrate.Persisted{ID: id, Schema: s, FieldIDs: ids}, nil
}

// fields returns the Field rows of a schema in declaration order.
func (c catalog) fields(ctx context.Context, schemaID string) ([]fieldRow, error) {
	rows, err := c.db.store.Query(ctx, "SELECT id, handle, type FROM Field WHERE schemaId = ? ORDER BY rowid", schemaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []fieldRow
	for rows.Next() {
		var f fieldRow
		if err := rows.Scan(&f.id, &f.handle, &f.code); err != nil {
			return nil, glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to scan field")
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to read fields")
	}
	return out, nil
}

// fieldIDs maps the field handles of a persisted schema to their ids.
func (c catalog) fieldIDs(ctx context.Context, schemaID string) (map[string]string, error) {
	fields, err := c.fields(ctx, schemaID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]string, len(fields))
	for _, f := range fields {
		ids[f.handle] = f.id
	}
	return ids, nil
}

// schemaID returns the id of a persisted schema version.
func (c catalog) schemaID(ctx context.Context, s *schema.Schema) (string, error) {
	var id string
	err := c.db.store.QueryRow(ctx, "SELECT id FROM Schema WHERE handle = ? AND version = ?",
		s.Handle(), s.Version()).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", glerr.New(glerr.CodeGraphSchemaNotFound,
			fmt.Sprintf("schema %s is not registered with this database", s),
			glerr.FieldSchema(s.Handle(), s.Version())...)
	}
	if err != nil {
		return "", glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to look up schema")
	}
	return id, nil
}

// FieldID implements querysql.FieldResolver.
func (c catalog) FieldID(ctx context.Context, schemaHandle string, version int, fieldHandle string) (string, error) {
	var id string
	err := c.db.store.QueryRow(ctx,
		"SELECT Field.id FROM Field INNER JOIN Schema ON Field.schemaId = Schema.id "+
			"WHERE Schema.handle = ? AND Schema.version = ? AND Field.handle = ?",
		schemaHandle, version, fieldHandle).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", glerr.New(glerr.CodeQueryFieldNotFound,
			fmt.Sprintf("field %q of schema %s@%d is not persisted", fieldHandle, schemaHandle, version),
			append(glerr.FieldSchema(schemaHandle, version), glerr.Field("field", fieldHandle))...)
	}
	if err != nil {
		return "", glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to look up field")
	}
	return id, nil
}

// insert persists a schema version: its Schema row, one Field row per field
// and the field's value tables.
func (c catalog) insert(ctx context.Context, s *schema.Schema) (migrate.Persisted, error) {
	s.Freeze()
	p := migrate.Persisted{ID: uuid.NewString(), Schema: s, FieldIDs: make(map[string]string)}

	err := c.db.store.InsertOrAbort(ctx, "Schema", store.Row{
		"id":      p.ID,
		"handle":  s.Handle(),
		"version": s.Version(),
	})
	if err != nil {
		return migrate.Persisted{}, err
	}

	for _, f := range s.Fields() {
		id := uuid.NewString()
		err := c.db.store.InsertOrAbort(ctx, "Field", store.Row{
			"id":       id,
			"handle":   f.Handle(),
			"schemaId": p.ID,
			"type":     f.Type().Code(),
		})
		if err != nil {
			return migrate.Persisted{}, err
		}
		stmts, err := layout.CreateStatements(id, f.Type())
		if err != nil {
			return migrate.Persisted{}, err
		}
		if err := c.db.store.ExecAll(ctx, stmts); err != nil {
			return migrate.Persisted{}, err
		}
		p.FieldIDs[f.Handle()] = id
	}

	c.db.remember(s)
	return p, nil
}

// drop removes a schema version with its value tables. Deleting the Schema
// row cascades to its Field rows, its elements and their connections.
func (c catalog) drop(ctx context.Context, p migrate.Persisted) error {
	for _, f := range p.Schema.Fields() {
		id, ok := p.FieldIDs[f.Handle()]
		if !ok {
			continue
		}
		if err := c.db.store.ExecAll(ctx, layout.DropStatements(id, f.Type())); err != nil {
			return err
		}
	}
	if _, err := c.db.store.Delete(ctx, "Schema", "id = ?", p.ID); err != nil {
		return err
	}
	c.db.logger.Debug("schema dropped", slog.String("schema", p.String()))
	return nil
}
