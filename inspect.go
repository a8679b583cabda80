package graphlite

import (
	"context"

	"github.com/roach88/graphlite/internal/querysql"
	glerr "github.com/roach88/graphlite/pkg/errors"
	"github.com/roach88/graphlite/schema"
)

// SchemaStats counts the elements stored under one schema version.
type SchemaStats struct {
	Schema      *schema.Schema
	Nodes       int
	Edges       int
	Connections int // connection rows whose edge uses this schema
}

// Schemas returns every persisted schema, ordered by handle then version.
// Registered schemas are returned as registered; the rest are rebuilt from
// the Field table and carry no validators.
func (db *DB) Schemas(ctx context.Context) ([]*schema.Schema, error) {
	persisted, err := catalog{db}.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*schema.Schema, len(persisted))
	for i, p := range persisted {
		out[i] = db.known(p.Schema)
	}
	return out, nil
}

// Stats returns element and connection counts for every persisted schema.
func (db *DB) Stats(ctx context.Context) ([]SchemaStats, error) {
	persisted, err := catalog{db}.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SchemaStats, 0, len(persisted))
	for _, p := range persisted {
		st := SchemaStats{Schema: db.known(p.Schema)}

		rows, err := db.store.Query(ctx,
			"SELECT type, COUNT(*) FROM Element WHERE schemaId = ? GROUP BY type", p.ID)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var typ string
			var n int
			if err := rows.Scan(&typ, &n); err != nil {
				rows.Close()
				return nil, glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to scan element counts")
			}
			switch typ {
			case querysql.TypeNode:
				st.Nodes = n
			case querysql.TypeEdge:
				st.Edges = n
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to read element counts")
		}

		if st.Edges > 0 {
			err := db.store.QueryRow(ctx, `SELECT COUNT(*) FROM Connection
				JOIN Element ON Element.handle = Connection.edgeHandle
				WHERE Element.schemaId = ?`, p.ID).Scan(&st.Connections)
			if err != nil {
				return nil, glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to count connections")
			}
		}
		out = append(out, st)
	}
	return out, nil
}
