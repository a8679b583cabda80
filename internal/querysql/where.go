package querysql

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/graphlite/internal/layout"
	"github.com/roach88/graphlite/match"
	glerr "github.com/roach88/graphlite/pkg/errors"
	"github.com/roach88/graphlite/schema"
)

// compileWhere converts a filter to a SQL condition. Compound conditions
// are parenthesized so they can be appended with AND safely.
func (c *Compiler) compileWhere(ctx context.Context, s *schema.Schema, w match.Where) (string, []any, error) {
	switch w := w.(type) {
	case match.And:
		return c.compileBinary(ctx, s, "AND", w.Left, w.Right)
	case match.Or:
		return c.compileBinary(ctx, s, "OR", w.Left, w.Right)
	case match.HandleEquals:
		return "Element.handle = ?", []any{w.Handle}, nil
	case match.Equals:
		return c.compileEquals(ctx, s, w)
	case match.Between:
		return c.compileScalar(ctx, s, w.Field, "value BETWEEN ? AND ?", w.Start, w.End)
	case match.GreaterThan:
		return c.compileScalar(ctx, s, w.Field, "value > ?", w.Value)
	case match.LessThan:
		return c.compileScalar(ctx, s, w.Field, "value < ?", w.Value)
	case match.Within:
		if len(w.Values) == 0 {
			return "1 = 0", nil, nil
		}
		return c.compileScalar(ctx, s, w.Field, "value IN ("+placeholders(len(w.Values))+")", w.Values...)
	case match.FullText:
		return c.compileFullText(ctx, s, w)
	case match.Inside:
		// Exact containment on the stored bounds.
		return c.compileGeo(ctx, s, w.Field, w.Bounds,
			"minLat >= ? AND maxLat <= ? AND minLon >= ? AND maxLon <= ?",
			w.Bounds.MinLat, w.Bounds.MaxLat, w.Bounds.MinLon, w.Bounds.MaxLon)
	case match.Overlaps:
		return c.compileGeo(ctx, s, w.Field, w.Bounds,
			"minLat <= ? AND maxLat >= ? AND minLon <= ? AND maxLon >= ?",
			w.Bounds.MaxLat, w.Bounds.MinLat, w.Bounds.MaxLon, w.Bounds.MinLon)
	default:
		return "", nil, unsupported("where", w)
	}
}

func (c *Compiler) compileBinary(ctx context.Context, s *schema.Schema, op string, l, r match.Where) (string, []any, error) {
	left, largs, err := c.compileWhere(ctx, s, l)
	if err != nil {
		return "", nil, err
	}
	right, rargs, err := c.compileWhere(ctx, s, r)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("(%s %s %s)", left, op, right), append(largs, rargs...), nil
}

func (c *Compiler) compileEquals(ctx context.Context, s *schema.Schema, w match.Equals) (string, []any, error) {
	cols := layout.Columns(w.Field.Type().Kind)

	if w.Value == nil {
		return c.valueSubquery(ctx, s, w.Field, cols[0]+" IS NULL")
	}

	v, err := operand(w.Field, w.Value)
	if err != nil {
		return "", nil, err
	}
	args, err := layout.Encode(schema.Required(w.Field.Type().Kind), v)
	if err != nil {
		return "", nil, err
	}
	conds := make([]string, len(cols))
	for i, col := range cols {
		conds[i] = col + " = ?"
	}
	return c.valueSubquery(ctx, s, w.Field, strings.Join(conds, " AND "), args...)
}

func (c *Compiler) compileScalar(ctx context.Context, s *schema.Schema, f *schema.Field, cond string, values ...any) (string, []any, error) {
	args := make([]any, len(values))
	for i, v := range values {
		a, err := operand(f, v)
		if err != nil {
			return "", nil, err
		}
		args[i] = a
	}
	return c.valueSubquery(ctx, s, f, cond, args...)
}

func (c *Compiler) compileFullText(ctx context.Context, s *schema.Schema, w match.FullText) (string, []any, error) {
	id, err := c.fieldID(ctx, s, w.Field)
	if err != nil {
		return "", nil, err
	}
	n := layout.Tables(id)
	cond := fmt.Sprintf("Element.id IN (SELECT elementId FROM %s WHERE id IN (SELECT docid FROM %s WHERE value MATCH ?))",
		n.Value, n.FTS)
	return cond, []any{w.Query}, nil
}

// compileGeo narrows candidates through the R-tree, which stores bounds
// rounded outward to float32, and then applies the exact condition to the
// value table's float64 columns.
func (c *Compiler) compileGeo(ctx context.Context, s *schema.Schema, f *schema.Field, q schema.GeoBounds, exact string, exactArgs ...any) (string, []any, error) {
	id, err := c.fieldID(ctx, s, f)
	if err != nil {
		return "", nil, err
	}
	n := layout.Tables(id)
	cond := fmt.Sprintf("Element.id IN (SELECT elementId FROM %s WHERE id IN "+
		"(SELECT id FROM %s WHERE minLat <= ? AND maxLat >= ? AND minLon <= ? AND maxLon >= ?) AND %s)",
		n.Value, n.RTree, exact)
	args := append([]any{q.MaxLat, q.MinLat, q.MaxLon, q.MinLon}, exactArgs...)
	return cond, args, nil
}

// valueSubquery selects the elements whose row in f's value table
// satisfies cond.
func (c *Compiler) valueSubquery(ctx context.Context, s *schema.Schema, f *schema.Field, cond string, args ...any) (string, []any, error) {
	id, err := c.fieldID(ctx, s, f)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Element.id IN (SELECT elementId FROM %s WHERE %s)", layout.Tables(id).Value, cond), args, nil
}

func (c *Compiler) compileOrder(ctx context.Context, s *schema.Schema, o match.Order) (join, orderBy string, err error) {
	var (
		f   *schema.Field
		dir string
	)
	switch o := o.(type) {
	case match.Asc:
		f, dir = o.Field, "ASC"
	case match.Desc:
		f, dir = o.Field, "DESC"
	default:
		return "", "", unsupported("order", o)
	}

	id, err := c.fieldID(ctx, s, f)
	if err != nil {
		return "", "", err
	}
	table := layout.Tables(id).Value
	return fmt.Sprintf("%s ON %s.elementId = Element.id", table, table),
		fmt.Sprintf("%s.value %s", table, dir), nil
}

func (c *Compiler) fieldID(ctx context.Context, s *schema.Schema, f *schema.Field) (string, error) {
	id, err := c.fields.FieldID(ctx, s.Handle(), s.Version(), f.Handle())
	if err != nil {
		if glerr.CodeOf(err) != "" {
			return "", err
		}
		return "", glerr.Wrap(err, glerr.CodeQueryFieldNotFound,
			fmt.Sprintf("cannot resolve field %q of schema %s", f.Handle(), s),
			glerr.Field("field", f.Handle()))
	}
	return id, nil
}

// operand normalizes a literal to the Go type bound for the field's kind.
func operand(f *schema.Field, v any) (any, error) {
	out, err := schema.NormalizeValue(schema.Required(f.Type().Kind), v)
	if err != nil {
		return nil, glerr.Wrap(err, glerr.CodeQueryMatchInvalid,
			fmt.Sprintf("invalid operand for field %q", f.Handle()))
	}
	return out, nil
}

func placeholders(n int) string {
	return "?" + strings.Repeat(", ?", n-1)
}
