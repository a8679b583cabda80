package graphlite

import (
	"context"

	"github.com/google/uuid"

	"github.com/roach88/graphlite/internal/querysql"
	"github.com/roach88/graphlite/schema"
)

// CreateNode stores a node under a generated handle.
func (db *DB) CreateNode(ctx context.Context, fm *schema.FieldMap) (*Node, error) {
	handle := uuid.NewString()
	if err := db.create(ctx, querysql.TypeNode, handle, fm); err != nil {
		return nil, err
	}
	return &Node{Handle: handle, Fields: fm}, nil
}

// CreateNodeWithHandle stores a node under handle. It returns nil, and
// writes nothing, when the handle is already taken by any element.
func (db *DB) CreateNodeWithHandle(ctx context.Context, handle string, fm *schema.FieldMap) (*Node, error) {
	ok, err := db.createWithHandle(ctx, querysql.TypeNode, handle, fm)
	if !ok {
		return nil, err
	}
	return &Node{Handle: handle, Fields: fm}, nil
}

// CreateOrReplaceNode stores a node under handle, replacing the values of
// an existing node. Connections of the replaced node are kept.
func (db *DB) CreateOrReplaceNode(ctx context.Context, handle string, fm *schema.FieldMap) (*Node, error) {
	if err := db.createOrReplace(ctx, querysql.TypeNode, handle, fm); err != nil {
		return nil, err
	}
	return &Node{Handle: handle, Fields: fm}, nil
}

// GetOrCreateNode returns the node stored under handle, creating it from fm
// when absent. An existing edge or a node of another schema is a conflict.
func (db *DB) GetOrCreateNode(ctx context.Context, handle string, fm *schema.FieldMap) (*Node, error) {
	out, err := db.getOrCreate(ctx, querysql.TypeNode, handle, fm)
	if err != nil {
		return nil, err
	}
	return &Node{Handle: handle, Fields: out}, nil
}

// GetNode returns the node stored under handle, or nil.
func (db *DB) GetNode(ctx context.Context, handle string) (*Node, error) {
	fm, err := db.get(ctx, querysql.TypeNode, handle)
	if err != nil || fm == nil {
		return nil, err
	}
	return &Node{Handle: handle, Fields: fm}, nil
}

// FindNodeSchema returns the schema of the node stored under handle, or nil.
func (db *DB) FindNodeSchema(ctx context.Context, handle string) (*schema.Schema, error) {
	return db.findSchema(ctx, querysql.TypeNode, handle)
}

// UpdateNodeField sets one field of a stored node after running its
// validator against the edited values.
func (db *DB) UpdateNodeField(ctx context.Context, n *Node, f *schema.Field, value any) (*Node, error) {
	fm, err := db.updateField(ctx, querysql.TypeNode, n.Handle, n.Fields, f, value)
	if err != nil {
		return nil, err
	}
	return &Node{Handle: n.Handle, Fields: fm}, nil
}

// UpdateNodeFields replaces every value of the node stored under handle.
// When fm has another schema the node moves to it and keeps its handle.
func (db *DB) UpdateNodeFields(ctx context.Context, handle string, fm *schema.FieldMap) (*Node, error) {
	if err := db.updateFields(ctx, querysql.TypeNode, handle, fm); err != nil {
		return nil, err
	}
	return &Node{Handle: handle, Fields: fm}, nil
}

// DeleteNode deletes the node stored under handle and reports whether it
// existed. With withConnections its connections are deleted too; without
// it a connected node is not deleted and the call fails.
func (db *DB) DeleteNode(ctx context.Context, handle string, withConnections bool) (bool, error) {
	return db.remove(ctx, querysql.TypeNode, handle, withConnections)
}
