package harness

import (
	"fmt"

	"github.com/roach88/graphlite/match"
	"github.com/roach88/graphlite/schema"
)

// MatchSpec is a match written as YAML. A leaf names a schema with nodes or
// edges and may carry where and order; a traversal sets exactly one of the
// traversal keys instead.
//
//	target_neighbours:
//	  from: {nodes: person, where: {handle: a}}
//	  to: {nodes: person}
type MatchSpec struct {
	Nodes string     `yaml:"nodes,omitempty"`
	Edges string     `yaml:"edges,omitempty"`
	Where *WhereSpec `yaml:"where,omitempty"`
	Order *OrderSpec `yaml:"order,omitempty"`

	Outgoing         *Traversal `yaml:"outgoing,omitempty"`
	Incoming         *Traversal `yaml:"incoming,omitempty"`
	Via              *Traversal `yaml:"via,omitempty"`
	Endpoints        *Traversal `yaml:"endpoints,omitempty"`
	Sources          *Traversal `yaml:"sources,omitempty"`
	Targets          *Traversal `yaml:"targets,omitempty"`
	Adjacent         *Traversal `yaml:"adjacent,omitempty"`
	SourceNeighbours *Traversal `yaml:"source_neighbours,omitempty"`
	TargetNeighbours *Traversal `yaml:"target_neighbours,omitempty"`
}

// Traversal walks from one match to the elements selected by another.
type Traversal struct {
	From *MatchSpec `yaml:"from"`
	To   *MatchSpec `yaml:"to"`
}

// WhereSpec is one predicate. Exactly one operator may be set.
type WhereSpec struct {
	Handle string `yaml:"handle,omitempty"`

	Field    string   `yaml:"field,omitempty"`
	Eq       any      `yaml:"eq,omitempty"`
	IsNull   bool     `yaml:"is_null,omitempty"`
	Between  []any    `yaml:"between,omitempty"`
	Gt       any      `yaml:"gt,omitempty"`
	Lt       any      `yaml:"lt,omitempty"`
	In       []any    `yaml:"in,omitempty"`
	Matches  string   `yaml:"matches,omitempty"`
	Inside   *GeoSpec `yaml:"inside,omitempty"`
	Overlaps *GeoSpec `yaml:"overlaps,omitempty"`

	AllOf []WhereSpec `yaml:"all_of,omitempty"`
	AnyOf []WhereSpec `yaml:"any_of,omitempty"`
}

// GeoSpec is a bounding box in degrees.
type GeoSpec struct {
	MinLat float64 `yaml:"min_lat"`
	MaxLat float64 `yaml:"max_lat"`
	MinLon float64 `yaml:"min_lon"`
	MaxLon float64 `yaml:"max_lon"`
}

func (g GeoSpec) bounds() (schema.GeoBounds, error) {
	return schema.NewGeoBounds(g.MinLat, g.MaxLat, g.MinLon, g.MaxLon)
}

// OrderSpec sorts a leaf by one field.
type OrderSpec struct {
	Asc  string `yaml:"asc,omitempty"`
	Desc string `yaml:"desc,omitempty"`
}

// Build turns the spec into a match, resolving schema handles through
// schemas.
func (m *MatchSpec) Build(schemas map[string]*schema.Schema) (match.ElementMatch, error) {
	type step struct {
		t     *Traversal
		build func(from, to match.ElementMatch) (match.ElementMatch, error)
	}
	steps := map[string]step{
		"outgoing":          {m.Outgoing, edgesFromNodes(match.Outgoing)},
		"incoming":          {m.Incoming, edgesFromNodes(match.Incoming)},
		"via":               {m.Via, edgesFromNodes(match.Via)},
		"endpoints":         {m.Endpoints, nodesFromEdges(match.Endpoints)},
		"sources":           {m.Sources, nodesFromEdges(match.Sources)},
		"targets":           {m.Targets, nodesFromEdges(match.Targets)},
		"adjacent":          {m.Adjacent, nodesFromNodes(match.Adjacent)},
		"source_neighbours": {m.SourceNeighbours, nodesFromNodes(match.SourceNeighbours)},
		"target_neighbours": {m.TargetNeighbours, nodesFromNodes(match.TargetNeighbours)},
	}

	var chosen string
	for name, st := range steps {
		if st.t == nil {
			continue
		}
		if chosen != "" {
			return nil, fmt.Errorf("match sets both %s and %s", chosen, name)
		}
		chosen = name
	}

	if chosen == "" {
		return m.leaf(schemas)
	}
	if m.Nodes != "" || m.Edges != "" || m.Where != nil || m.Order != nil {
		return nil, fmt.Errorf("%s: a traversal cannot also name a schema, where or order", chosen)
	}
	st := steps[chosen]
	if st.t.From == nil || st.t.To == nil {
		return nil, fmt.Errorf("%s: from and to are required", chosen)
	}
	from, err := st.t.From.Build(schemas)
	if err != nil {
		return nil, fmt.Errorf("%s.from: %w", chosen, err)
	}
	to, err := st.t.To.Build(schemas)
	if err != nil {
		return nil, fmt.Errorf("%s.to: %w", chosen, err)
	}
	out, err := st.build(from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", chosen, err)
	}
	return out, nil
}

func edgesFromNodes(fn func(match.NodeMatch, match.EdgeMatch) match.EdgeMatch) func(from, to match.ElementMatch) (match.ElementMatch, error) {
	return func(from, to match.ElementMatch) (match.ElementMatch, error) {
		n, ok := from.(match.NodeMatch)
		if !ok {
			return nil, fmt.Errorf("from must select nodes")
		}
		e, ok := to.(match.EdgeMatch)
		if !ok {
			return nil, fmt.Errorf("to must select edges")
		}
		return fn(n, e), nil
	}
}

func nodesFromEdges(fn func(match.EdgeMatch, match.NodeMatch) match.NodeMatch) func(from, to match.ElementMatch) (match.ElementMatch, error) {
	return func(from, to match.ElementMatch) (match.ElementMatch, error) {
		e, ok := from.(match.EdgeMatch)
		if !ok {
			return nil, fmt.Errorf("from must select edges")
		}
		n, ok := to.(match.NodeMatch)
		if !ok {
			return nil, fmt.Errorf("to must select nodes")
		}
		return fn(e, n), nil
	}
}

func nodesFromNodes(fn func(match.NodeMatch, match.NodeMatch) match.NodeMatch) func(from, to match.ElementMatch) (match.ElementMatch, error) {
	return func(from, to match.ElementMatch) (match.ElementMatch, error) {
		a, ok := from.(match.NodeMatch)
		if !ok {
			return nil, fmt.Errorf("from must select nodes")
		}
		b, ok := to.(match.NodeMatch)
		if !ok {
			return nil, fmt.Errorf("to must select nodes")
		}
		return fn(a, b), nil
	}
}

func (m *MatchSpec) leaf(schemas map[string]*schema.Schema) (match.ElementMatch, error) {
	if (m.Nodes == "") == (m.Edges == "") {
		return nil, fmt.Errorf("exactly one of nodes or edges is required")
	}
	handle := m.Nodes + m.Edges
	s, ok := schemas[handle]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", handle)
	}

	var (
		where match.Where
		order match.Order
		err   error
	)
	if m.Where != nil {
		if where, err = m.Where.build(s); err != nil {
			return nil, err
		}
	}
	if m.Order != nil {
		if order, err = m.Order.build(s); err != nil {
			return nil, err
		}
	}

	if m.Nodes != "" {
		return &match.NodesBySchema{Of: s, Filter: where, Sort: order}, nil
	}
	return &match.EdgesBySchema{Of: s, Filter: where, Sort: order}, nil
}

func (o *OrderSpec) build(s *schema.Schema) (match.Order, error) {
	if (o.Asc == "") == (o.Desc == "") {
		return nil, fmt.Errorf("order: exactly one of asc or desc is required")
	}
	if o.Asc != "" {
		f, err := lookupField(s, o.Asc)
		if err != nil {
			return nil, err
		}
		return match.Ascending(f), nil
	}
	f, err := lookupField(s, o.Desc)
	if err != nil {
		return nil, err
	}
	return match.Descending(f), nil
}

func (w *WhereSpec) build(s *schema.Schema) (match.Where, error) {
	switch {
	case len(w.AllOf) > 0:
		return combine(s, w.AllOf, match.AllOf)
	case len(w.AnyOf) > 0:
		return combine(s, w.AnyOf, match.AnyOf)
	case w.Handle != "":
		return match.Handle(w.Handle), nil
	}

	f, err := lookupField(s, w.Field)
	if err != nil {
		return nil, err
	}
	value := func(raw any) (any, error) { return fieldValue(f, raw) }

	switch {
	case w.IsNull:
		return match.IsNull(f), nil
	case w.Eq != nil:
		v, err := value(w.Eq)
		if err != nil {
			return nil, err
		}
		return match.Eq(f, v), nil
	case w.Between != nil:
		if len(w.Between) != 2 {
			return nil, fmt.Errorf("where %s: between takes two values", f.Handle())
		}
		start, err := value(w.Between[0])
		if err != nil {
			return nil, err
		}
		end, err := value(w.Between[1])
		if err != nil {
			return nil, err
		}
		return match.Range(f, start, end), nil
	case w.Gt != nil:
		v, err := value(w.Gt)
		if err != nil {
			return nil, err
		}
		return match.Gt(f, v), nil
	case w.Lt != nil:
		v, err := value(w.Lt)
		if err != nil {
			return nil, err
		}
		return match.Lt(f, v), nil
	case w.In != nil:
		vs := make([]any, len(w.In))
		for i, raw := range w.In {
			if vs[i], err = value(raw); err != nil {
				return nil, err
			}
		}
		return match.OneOf(f, vs...), nil
	case w.Matches != "":
		return match.Matches(f, w.Matches), nil
	case w.Inside != nil:
		b, err := w.Inside.bounds()
		if err != nil {
			return nil, err
		}
		return match.InsideOf(f, b), nil
	case w.Overlaps != nil:
		b, err := w.Overlaps.bounds()
		if err != nil {
			return nil, err
		}
		return match.Overlapping(f, b), nil
	}
	return nil, fmt.Errorf("where %s: no operator set", f.Handle())
}

func combine(s *schema.Schema, specs []WhereSpec, join func(match.Where, ...match.Where) match.Where) (match.Where, error) {
	built := make([]match.Where, len(specs))
	for i := range specs {
		w, err := specs[i].build(s)
		if err != nil {
			return nil, err
		}
		built[i] = w
	}
	return join(built[0], built[1:]...), nil
}

func lookupField(s *schema.Schema, handle string) (*schema.Field, error) {
	if handle == "" {
		return nil, fmt.Errorf("field is required")
	}
	f, ok := s.Field(handle)
	if !ok {
		return nil, fmt.Errorf("schema %s has no field %q", s, handle)
	}
	return f, nil
}

// fieldValue converts a decoded YAML scalar to the Go value the field
// expects. Strings become bytes for blobs; geo values are written as a
// {min_lat, max_lat, min_lon, max_lon} map or a [lat, lon] point.
func fieldValue(f *schema.Field, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch f.Type().Kind {
	case schema.Blob:
		if s, ok := raw.(string); ok {
			return []byte(s), nil
		}
	case schema.Geo:
		return geoValue(f, raw)
	}
	return raw, nil
}

func geoValue(f *schema.Field, raw any) (schema.GeoBounds, error) {
	switch v := raw.(type) {
	case map[string]any:
		var g GeoSpec
		for key, dst := range map[string]*float64{
			"min_lat": &g.MinLat, "max_lat": &g.MaxLat, "min_lon": &g.MinLon, "max_lon": &g.MaxLon,
		} {
			n, ok := number(v[key])
			if !ok {
				return schema.GeoBounds{}, fmt.Errorf("field %s: geo value needs a numeric %s", f.Handle(), key)
			}
			*dst = n
		}
		return g.bounds()
	case []any:
		if len(v) == 2 {
			lat, ok1 := number(v[0])
			lon, ok2 := number(v[1])
			if ok1 && ok2 {
				return schema.Point(lat, lon), nil
			}
		}
	}
	return schema.GeoBounds{}, fmt.Errorf("field %s: cannot read %v as a geo value", f.Handle(), raw)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
