package graphlite

import (
	"context"

	"github.com/google/uuid"

	"github.com/roach88/graphlite/internal/querysql"
	"github.com/roach88/graphlite/schema"
)

// CreateEdge stores an edge under a generated handle.
func (db *DB) CreateEdge(ctx context.Context, fm *schema.FieldMap) (*Edge, error) {
	handle := uuid.NewString()
	if err := db.create(ctx, querysql.TypeEdge, handle, fm); err != nil {
		return nil, err
	}
	return &Edge{Handle: handle, Fields: fm}, nil
}

// CreateEdgeWithHandle stores an edge under handle. It returns nil, and
// writes nothing, when the handle is already taken by any element.
func (db *DB) CreateEdgeWithHandle(ctx context.Context, handle string, fm *schema.FieldMap) (*Edge, error) {
	ok, err := db.createWithHandle(ctx, querysql.TypeEdge, handle, fm)
	if !ok {
		return nil, err
	}
	return &Edge{Handle: handle, Fields: fm}, nil
}

// CreateOrReplaceEdge stores an edge under handle, replacing the values of
// an existing edge. Connections of the replaced edge are kept.
func (db *DB) CreateOrReplaceEdge(ctx context.Context, handle string, fm *schema.FieldMap) (*Edge, error) {
	if err := db.createOrReplace(ctx, querysql.TypeEdge, handle, fm); err != nil {
		return nil, err
	}
	return &Edge{Handle: handle, Fields: fm}, nil
}

// GetOrCreateEdge returns the edge stored under handle, creating it from fm
// when absent. An existing node or an edge of another schema is a conflict.
func (db *DB) GetOrCreateEdge(ctx context.Context, handle string, fm *schema.FieldMap) (*Edge, error) {
	out, err := db.getOrCreate(ctx, querysql.TypeEdge, handle, fm)
	if err != nil {
		return nil, err
	}
	return &Edge{Handle: handle, Fields: out}, nil
}

// GetEdge returns the edge stored under handle, or nil.
func (db *DB) GetEdge(ctx context.Context, handle string) (*Edge, error) {
	fm, err := db.get(ctx, querysql.TypeEdge, handle)
	if err != nil || fm == nil {
		return nil, err
	}
	return &Edge{Handle: handle, Fields: fm}, nil
}

// FindEdgeSchema returns the schema of the edge stored under handle, or nil.
func (db *DB) FindEdgeSchema(ctx context.Context, handle string) (*schema.Schema, error) {
	return db.findSchema(ctx, querysql.TypeEdge, handle)
}

// UpdateEdgeField sets one field of a stored edge after running its
// validator against the edited values.
func (db *DB) UpdateEdgeField(ctx context.Context, n *Edge, f *schema.Field, value any) (*Edge, error) {
	fm, err := db.updateField(ctx, querysql.TypeEdge, n.Handle, n.Fields, f, value)
	if err != nil {
		return nil, err
	}
	return &Edge{Handle: n.Handle, Fields: fm}, nil
}

// UpdateEdgeFields replaces every value of the edge stored under handle.
// When fm has another schema the edge moves to it and keeps its handle.
func (db *DB) UpdateEdgeFields(ctx context.Context, handle string, fm *schema.FieldMap) (*Edge, error) {
	if err := db.updateFields(ctx, querysql.TypeEdge, handle, fm); err != nil {
		return nil, err
	}
	return &Edge{Handle: handle, Fields: fm}, nil
}

// DeleteEdge deletes the edge stored under handle and reports whether it
// existed. With withConnections its connections are deleted too; without
// it a connected edge is not deleted and the call fails.
func (db *DB) DeleteEdge(ctx context.Context, handle string, withConnections bool) (bool, error) {
	return db.remove(ctx, querysql.TypeEdge, handle, withConnections)
}
