package querysql

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/graphlite/match"
	glerr "github.com/roach88/graphlite/pkg/errors"
	"github.com/roach88/graphlite/schema"
)

// Element types as stored in Element.type.
const (
	TypeNode = "node"
	TypeEdge = "edge"
)

// FieldResolver maps a field of a persisted schema to its row id in the
// Field table. The value table names derive from that id.
type FieldResolver interface {
	FieldID(ctx context.Context, schemaHandle string, version int, fieldHandle string) (string, error)
}

// Statement is a compiled match. SQL selects (Element.id, Element.handle).
type Statement struct {
	SQL    string
	Args   []any
	Schema *schema.Schema
	Type   string
}

// Compiler compiles matches to parameterized SQL for SQLite.
//
// All operands are bound parameters, never interpolated. Table names are
// the only generated identifiers and come from layout.Tables.
//
// Every statement ends with a stable ORDER BY: the requested field order,
// if any, then Element.handle.
type Compiler struct {
	fields FieldResolver
}

func NewCompiler(fields FieldResolver) *Compiler {
	return &Compiler{fields: fields}
}

// spec is one compiled sub-match. join and orderBy apply only at the top
// level; nested sub-selects use where and args alone.
type spec struct {
	schema  *schema.Schema
	typ     string
	join    string
	where   string
	args    []any
	orderBy string
}

// Compile validates m and converts it to a Statement.
func (c *Compiler) Compile(ctx context.Context, m match.ElementMatch) (Statement, error) {
	if err := match.Validate(m); err != nil {
		return Statement{}, err
	}
	s, err := c.compileMatch(ctx, m)
	if err != nil {
		return Statement{}, err
	}

	var b strings.Builder
	b.WriteString("SELECT Element.id, Element.handle FROM Element")
	if s.join != "" {
		b.WriteString(" INNER JOIN ")
		b.WriteString(s.join)
	}
	b.WriteString(" WHERE ")
	b.WriteString(s.where)
	b.WriteString(" ORDER BY ")
	if s.orderBy != "" {
		b.WriteString(s.orderBy)
		b.WriteString(", ")
	}
	b.WriteString("Element.handle ASC")

	return Statement{SQL: b.String(), Args: s.args, Schema: s.schema, Type: s.typ}, nil
}

func (c *Compiler) compileMatch(ctx context.Context, m match.ElementMatch) (spec, error) {
	switch m := m.(type) {
	case *match.NodesBySchema:
		return c.compileBySchema(ctx, TypeNode, m.Of, m.Filter, m.Sort)
	case *match.EdgesBySchema:
		return c.compileBySchema(ctx, TypeEdge, m.Of, m.Filter, m.Sort)
	case *match.EdgesFromNodes:
		return c.compileEdgesFromNodes(ctx, m)
	case *match.NodesFromEdges:
		return c.compileNodesFromEdges(ctx, m)
	case *match.NeighbourNodes:
		return c.compileNeighbours(ctx, m)
	default:
		return spec{}, unsupported("match", m)
	}
}

func (c *Compiler) compileBySchema(ctx context.Context, typ string, s *schema.Schema, w match.Where, o match.Order) (spec, error) {
	out := spec{
		schema: s,
		typ:    typ,
		where:  "Element.schemaId = (SELECT id FROM Schema WHERE handle = ? AND version = ? LIMIT 1) AND Element.type = ?",
		args:   []any{s.Handle(), int64(s.Version()), typ},
	}

	if w != nil {
		cond, args, err := c.compileWhere(ctx, s, w)
		if err != nil {
			return spec{}, err
		}
		out.where += " AND " + cond
		out.args = append(out.args, args...)
	}

	if o != nil {
		join, orderBy, err := c.compileOrder(ctx, s, o)
		if err != nil {
			return spec{}, err
		}
		out.join, out.orderBy = join, orderBy
	}
	return out, nil
}

// subSelect returns the handles selected by a compiled sub-match.
func subSelect(s spec) string {
	return "SELECT Element.handle FROM Element WHERE " + s.where
}

// outgoingFilter renders the direction clause. Outgoing = 1 marks the
// node as the edge's source.
func outgoingFilter(column string, outgoing *bool) string {
	switch {
	case outgoing == nil:
		return ""
	case *outgoing:
		return " AND " + column + " = 1"
	default:
		return " AND " + column + " = 0"
	}
}

func boolPtr(b bool) *bool { return &b }

// compose wraps the target spec with a traversal condition over from.
func compose(from, target spec, cond string) spec {
	target.where = cond + " AND " + target.where
	target.args = append(append([]any{}, from.args...), target.args...)
	return target
}

func (c *Compiler) compileEdgesFromNodes(ctx context.Context, m *match.EdgesFromNodes) (spec, error) {
	nodes, err := c.compileMatch(ctx, m.From)
	if err != nil {
		return spec{}, err
	}
	edges, err := c.compileMatch(ctx, m.Edges)
	if err != nil {
		return spec{}, err
	}

	var outgoing *bool
	switch m.Direction {
	case match.Out:
		outgoing = boolPtr(true)
	case match.In:
		outgoing = boolPtr(false)
	case match.AnyDirection:
	default:
		return spec{}, unsupported("direction", m.Direction)
	}

	cond := fmt.Sprintf("Element.handle IN (SELECT edgeHandle FROM Connection WHERE nodeHandle IN (%s)%s)",
		subSelect(nodes), outgoingFilter("outgoing", outgoing))
	return compose(nodes, edges, cond), nil
}

func (c *Compiler) compileNodesFromEdges(ctx context.Context, m *match.NodesFromEdges) (spec, error) {
	edges, err := c.compileMatch(ctx, m.From)
	if err != nil {
		return spec{}, err
	}
	nodes, err := c.compileMatch(ctx, m.Nodes)
	if err != nil {
		return spec{}, err
	}

	outgoing, err := roleFilter(m.Role)
	if err != nil {
		return spec{}, err
	}

	cond := fmt.Sprintf("Element.handle IN (SELECT nodeHandle FROM Connection WHERE edgeHandle IN (%s)%s)",
		subSelect(edges), outgoingFilter("outgoing", outgoing))
	return compose(edges, nodes, cond), nil
}

func (c *Compiler) compileNeighbours(ctx context.Context, m *match.NeighbourNodes) (spec, error) {
	from, err := c.compileMatch(ctx, m.From)
	if err != nil {
		return spec{}, err
	}
	to, err := c.compileMatch(ctx, m.Nodes)
	if err != nil {
		return spec{}, err
	}

	outgoing, err := roleFilter(m.Role)
	if err != nil {
		return spec{}, err
	}

	cond := fmt.Sprintf("Element.handle IN (SELECT Connection.nodeHandle FROM Connection, "+
		"(SELECT id, edgeHandle FROM Connection WHERE nodeHandle IN (%s)) AS C "+
		"WHERE Connection.edgeHandle = C.edgeHandle AND Connection.id != C.id%s)",
		subSelect(from), outgoingFilter("Connection.outgoing", outgoing))
	return compose(from, to, cond), nil
}

// roleFilter maps the role of the selected node to its outgoing flag.
func roleFilter(r match.NodeRole) (*bool, error) {
	switch r {
	case match.AnyRole:
		return nil, nil
	case match.SourceRole:
		return boolPtr(true), nil
	case match.TargetRole:
		return boolPtr(false), nil
	default:
		return nil, unsupported("role", r)
	}
}

func unsupported(what string, v any) error {
	return glerr.New(glerr.CodeQueryMatchUnsupported, fmt.Sprintf("unsupported %s: %T", what, v))
}
