package graphlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/graphlite/internal/layout"
	"github.com/roach88/graphlite/internal/store"
	glerr "github.com/roach88/graphlite/pkg/errors"
	"github.com/roach88/graphlite/schema"
)

// Node is a graph node: a handle and the field values of its schema.
type Node struct {
	Handle string
	Fields *schema.FieldMap
}

// Edge is a graph edge. Nodes and edges share one handle namespace.
type Edge struct {
	Handle string
	Fields *schema.FieldMap
}

// Schema returns the schema of the node's fields.
func (n *Node) Schema() *schema.Schema { return n.Fields.Schema() }

// Schema returns the schema of the edge's fields.
func (e *Edge) Schema() *schema.Schema { return e.Fields.Schema() }

// validate runs every validator of fm's schema.
func validate(fm *schema.FieldMap) error {
	return rejected(fm.Schema().CheckAll(fm))
}

func rejected(err error) error {
	if err == nil {
		return nil
	}
	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		return glerr.Wrap(err, glerr.CodeGraphValidationRejected, "validation rejected the write",
			append(glerr.FieldSchema(ve.Schema, ve.Version), glerr.Field("field", ve.Field))...)
	}
	return err
}

func checkHandle(handle string) error {
	if handle == "" {
		return glerr.New(glerr.CodeGraphHandleInvalid, "element handle must not be empty")
	}
	return nil
}

func checkFields(fm *schema.FieldMap) error {
	if fm == nil {
		return glerr.New(glerr.CodeSchemaFieldMapInvalid, "field map must not be nil")
	}
	return nil
}

// create validates fm and inserts the Element row and one row per field.
func (db *DB) create(ctx context.Context, typ, handle string, fm *schema.FieldMap) error {
	if err := checkHandle(handle); err != nil {
		return err
	}
	if err := checkFields(fm); err != nil {
		return err
	}
	if err := validate(fm); err != nil {
		return err
	}

	return db.store.Transaction(ctx, func(ctx context.Context) error {
		schemaID, ids, err := db.persistedFields(ctx, fm.Schema())
		if err != nil {
			return err
		}
		id := uuid.NewString()
		err = db.store.InsertOrAbort(ctx, "Element", store.Row{
			"id":       id,
			"handle":   handle,
			"schemaId": schemaID,
			"type":     typ,
		})
		if err != nil {
			return err
		}
		return db.writeValues(ctx, id, fm, ids)
	})
}

// createWithHandle is create that reports a taken handle as false instead
// of an error. The savepoint undoes any partial write.
func (db *DB) createWithHandle(ctx context.Context, typ, handle string, fm *schema.FieldMap) (bool, error) {
	err := db.store.Savepoint(ctx, func(ctx context.Context) error {
		return db.create(ctx, typ, handle, fm)
	})
	if store.IsConstraintViolation(err) {
		db.logger.Debug("handle already taken", slog.String("handle", handle), slog.String("type", typ))
		return false, nil
	}
	return err == nil, err
}

// createOrReplace stores fm under handle. An existing element of the same
// type keeps its handle and connections; its values are replaced and it
// gets a fresh internal id.
func (db *DB) createOrReplace(ctx context.Context, typ, handle string, fm *schema.FieldMap) error {
	if err := checkHandle(handle); err != nil {
		return err
	}
	if err := checkFields(fm); err != nil {
		return err
	}
	return db.store.Transaction(ctx, func(ctx context.Context) error {
		e, err := db.lookup(ctx, handle)
		if err != nil {
			return err
		}
		if e == nil {
			return db.create(ctx, typ, handle, fm)
		}
		if e.typ != typ {
			return typeConflict(e, typ)
		}
		if err := validate(fm); err != nil {
			return err
		}
		return db.repoint(ctx, e, fm)
	})
}

// repoint deletes the element's values, gives the Element row a new id and
// schema, and writes fm.
func (db *DB) repoint(ctx context.Context, e *element, fm *schema.FieldMap) error {
	schemaID, ids, err := db.persistedFields(ctx, fm.Schema())
	if err != nil {
		return err
	}
	if err := db.deleteValues(ctx, e); err != nil {
		return err
	}
	id := uuid.NewString()
	_, err = db.store.UpdateOrReplace(ctx, "Element",
		store.Row{"id": id, "schemaId": schemaID}, "handle = ?", e.handle)
	if err != nil {
		return err
	}
	return db.writeValues(ctx, id, fm, ids)
}

// getOrCreate returns the stored values of handle, or creates it from fm.
// The stored element must have the same type and schema as fm.
func (db *DB) getOrCreate(ctx context.Context, typ, handle string, fm *schema.FieldMap) (*schema.FieldMap, error) {
	if err := checkFields(fm); err != nil {
		return nil, err
	}
	var out *schema.FieldMap
	err := db.store.Transaction(ctx, func(ctx context.Context) error {
		e, err := db.lookup(ctx, handle)
		if err != nil {
			return err
		}
		if e == nil {
			out = fm
			return db.create(ctx, typ, handle, fm)
		}
		if e.typ != typ {
			return typeConflict(e, typ)
		}
		stored, ids, err := db.schemaOf(ctx, e)
		if err != nil {
			return err
		}
		if !stored.Equal(fm.Schema()) {
			return glerr.New(glerr.CodeGraphElementConflict,
				fmt.Sprintf("%s %q is stored under schema %s, not %s", typ, handle, stored, fm.Schema()),
				glerr.FieldHandle(handle))
		}
		out, err = db.hydrate(ctx, e.id, fm.Schema(), ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// get returns the stored values of handle, or nil when there is no element
// of that type.
func (db *DB) get(ctx context.Context, typ, handle string) (*schema.FieldMap, error) {
	var out *schema.FieldMap
	err := db.store.Transaction(ctx, func(ctx context.Context) error {
		e, err := db.lookup(ctx, handle)
		if err != nil || e == nil || e.typ != typ {
			return err
		}
		s, ids, err := db.schemaOf(ctx, e)
		if err != nil {
			return err
		}
		out, err = db.hydrate(ctx, e.id, s, ids)
		return err
	})
	return out, err
}

// findSchema returns the schema handle is stored under, rebuilt from the
// Field table when the schema was not declared through this database.
func (db *DB) findSchema(ctx context.Context, typ, handle string) (*schema.Schema, error) {
	var out *schema.Schema
	err := db.store.Transaction(ctx, func(ctx context.Context) error {
		e, err := db.lookup(ctx, handle)
		if err != nil || e == nil || e.typ != typ {
			return err
		}
		out, _, err = db.schemaOf(ctx, e)
		return err
	})
	return out, err
}

// updateField sets one field of a stored element in place. current must be
// the element's values; the edited copy is returned.
func (db *DB) updateField(ctx context.Context, typ, handle string, current *schema.FieldMap, f *schema.Field, value any) (*schema.FieldMap, error) {
	if err := checkFields(current); err != nil {
		return nil, err
	}
	s := current.Schema()
	edited, err := current.Edit().Set(f, value).Build()
	if err != nil {
		return nil, err
	}
	if err := rejected(s.Check(edited, f, edited.Value(f))); err != nil {
		return nil, err
	}

	err = db.store.Transaction(ctx, func(ctx context.Context) error {
		e, stored, ids, err := db.storedAs(ctx, typ, handle)
		if err != nil {
			return err
		}
		if !stored.Equal(s) {
			return glerr.New(glerr.CodeGraphElementConflict,
				fmt.Sprintf("%s %q is stored under schema %s, not %s", typ, handle, stored, s),
				glerr.FieldHandle(handle))
		}
		return db.updateValue(ctx, e.id, f, ids[f.Handle()], edited.Value(f))
	})
	if err != nil {
		return nil, err
	}
	return edited, nil
}

// updateFields replaces every value of a stored element. When fm has the
// element's schema the rows are updated in place; otherwise the element
// moves to fm's schema and keeps its handle and connections.
func (db *DB) updateFields(ctx context.Context, typ, handle string, fm *schema.FieldMap) error {
	if err := checkFields(fm); err != nil {
		return err
	}
	if err := validate(fm); err != nil {
		return err
	}
	return db.store.Transaction(ctx, func(ctx context.Context) error {
		e, stored, ids, err := db.storedAs(ctx, typ, handle)
		if err != nil {
			return err
		}
		if !stored.Equal(fm.Schema()) {
			db.logger.Debug("element changes schema",
				slog.String("handle", handle),
				slog.String("from", stored.String()),
				slog.String("to", fm.Schema().String()))
			return db.repoint(ctx, e, fm)
		}
		for _, f := range fm.Schema().Fields() {
			if err := db.updateValue(ctx, e.id, f, ids[f.Handle()], fm.Value(f)); err != nil {
				return err
			}
		}
		return nil
	})
}

// remove deletes an element. Without withConnections an element that still
// has connections is a conflict.
func (db *DB) remove(ctx context.Context, typ, handle string, withConnections bool) (bool, error) {
	var deleted bool
	err := db.store.Transaction(ctx, func(ctx context.Context) error {
		e, err := db.lookup(ctx, handle)
		if err != nil || e == nil || e.typ != typ {
			return err
		}
		if withConnections {
			if _, err := db.store.Delete(ctx, "Connection", "edgeHandle = ? OR nodeHandle = ?", handle, handle); err != nil {
				return err
			}
		} else {
			connected, err := db.store.Exists(ctx,
				"SELECT 1 FROM Connection WHERE edgeHandle = ? OR nodeHandle = ? LIMIT 1", handle, handle)
			if err != nil {
				return err
			}
			if connected {
				return glerr.New(glerr.CodeGraphElementConflict,
					fmt.Sprintf("%s %q still has connections", typ, handle), glerr.FieldHandle(handle))
			}
		}
		deleted, err = db.store.Delete(ctx, "Element", "id = ?", e.id)
		return err
	})
	return deleted, err
}

// storedAs returns the element, its schema and field ids, or not found when
// handle is absent or has another type.
func (db *DB) storedAs(ctx context.Context, typ, handle string) (*element, *schema.Schema, map[string]string, error) {
	e, err := db.lookup(ctx, handle)
	if err != nil {
		return nil, nil, nil, err
	}
	if e == nil || e.typ != typ {
		return nil, nil, nil, glerr.New(glerr.CodeGraphElementNotFound,
			fmt.Sprintf("%s %q not found", typ, handle), glerr.FieldHandle(handle))
	}
	s, ids, err := db.schemaOf(ctx, e)
	if err != nil {
		return nil, nil, nil, err
	}
	return e, s, ids, nil
}

// persistedFields returns the schema id and field ids of s.
func (db *DB) persistedFields(ctx context.Context, s *schema.Schema) (string, map[string]string, error) {
	cat := catalog{db}
	schemaID, err := cat.schemaID(ctx, s)
	if err != nil {
		return "", nil, err
	}
	ids, err := cat.fieldIDs(ctx, schemaID)
	if err != nil {
		return "", nil, err
	}
	return schemaID, ids, nil
}

func (db *DB) writeValues(ctx context.Context, elementID string, fm *schema.FieldMap, ids map[string]string) error {
	s := fm.Schema()
	for _, f := range s.Fields() {
		fieldID, ok := ids[f.Handle()]
		if !ok {
			return missingField(s, f)
		}
		row, err := layout.Row(f.Type(), elementID, fm.Value(f))
		if err != nil {
			return err
		}
		if err := db.store.InsertOrAbort(ctx, layout.Tables(fieldID).Value, store.Row(row)); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) updateValue(ctx context.Context, elementID string, f *schema.Field, fieldID string, value any) error {
	if fieldID == "" {
		return missingField(f.Schema(), f)
	}
	args, err := layout.Encode(f.Type(), value)
	if err != nil {
		return err
	}
	values := store.Row{}
	for i, col := range layout.Columns(f.Type().Kind) {
		values[col] = args[i]
	}
	n, err := db.store.UpdateOrReplace(ctx, layout.Tables(fieldID).Value, values, "elementId = ?", elementID)
	if err != nil {
		return err
	}
	if n == 0 {
		return glerr.New(glerr.CodeStoreLayoutInvalid,
			fmt.Sprintf("missing value row for field %q", f.Handle()), glerr.Field("field", f.Handle()))
	}
	return nil
}

func (db *DB) deleteValues(ctx context.Context, e *element) error {
	ids, err := catalog{db}.fieldIDs(ctx, e.schemaID)
	if err != nil {
		return err
	}
	for _, fieldID := range ids {
		if _, err := db.store.Delete(ctx, layout.Tables(fieldID).Value, "elementId = ?", e.id); err != nil {
			return err
		}
	}
	return nil
}

// hydrate reads every field value of an element on the transaction carried
// by ctx.
func (db *DB) hydrate(ctx context.Context, elementID string, s *schema.Schema, ids map[string]string) (*schema.FieldMap, error) {
	m := schema.NewFieldMap(s)
	for _, f := range s.Fields() {
		fieldID, ok := ids[f.Handle()]
		if !ok {
			return nil, missingField(s, f)
		}
		kind := f.Type().Kind
		v, err := layout.Decode(kind, db.store.QueryRow(ctx, layout.SelectSQL(fieldID, kind), elementID))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, glerr.New(glerr.CodeStoreLayoutInvalid,
				fmt.Sprintf("missing value of field %q for element %s", f.Handle(), elementID),
				glerr.Field("field", f.Handle()))
		}
		if err != nil {
			return nil, glerr.Wrap(err, glerr.CodeStoreValueDecodeInvalid, "failed to read field value",
				glerr.Field("field", f.Handle()))
		}
		m.Set(f, v)
	}
	return m.Build()
}

func missingField(s *schema.Schema, f *schema.Field) error {
	return glerr.New(glerr.CodeStoreLayoutInvalid,
		fmt.Sprintf("field %q of schema %s is not persisted", f.Handle(), s),
		append(glerr.FieldSchema(s.Handle(), s.Version()), glerr.Field("field", f.Handle()))...)
}

func typeConflict(e *element, want string) error {
	return glerr.New(glerr.CodeGraphElementConflict,
		fmt.Sprintf("handle %q belongs to an element of type %s, not %s", e.handle, e.typ, want),
		glerr.FieldHandle(e.handle))
}
