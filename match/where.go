package match

import "github.com/roach88/graphlite/schema"

// Where is a filter over the elements of one schema.
//
// Where types:
//   - And, Or: boolean composition
//   - HandleEquals: element handle = literal
//   - Equals: field = literal, or field IS NULL when Value is nil
//   - Between, GreaterThan, LessThan, Within: scalar comparisons
//   - FullText: token match through the full-text index
//   - Inside, Overlaps: rectangle predicates through the spatial index
type Where interface {
	whereNode()
}

type And struct{ Left, Right Where }
type Or struct{ Left, Right Where }

// HandleEquals matches the element with the given handle.
type HandleEquals struct{ Handle string }

// Equals matches elements whose field equals Value. A nil Value matches
// null optional fields.
type Equals struct {
	Field *schema.Field
	Value any
}

// Between matches Start <= field <= End.
type Between struct {
	Field      *schema.Field
	Start, End any
}

type GreaterThan struct {
	Field *schema.Field
	Value any
}

type LessThan struct {
	Field *schema.Field
	Value any
}

// Within matches elements whose field equals any of Values.
type Within struct {
	Field  *schema.Field
	Values []any
}

// FullText matches elements whose full-text field matches Query, using the
// index's query syntax.
type FullText struct {
	Field *schema.Field
	Query string
}

// Inside matches geo values lying within Bounds.
type Inside struct {
	Field  *schema.Field
	Bounds schema.GeoBounds
}

// Overlaps matches geo values intersecting Bounds.
type Overlaps struct {
	Field  *schema.Field
	Bounds schema.GeoBounds
}

func (And) whereNode()          {}
func (Or) whereNode()           {}
func (HandleEquals) whereNode() {}
func (Equals) whereNode()       {}
func (Between) whereNode()      {}
func (GreaterThan) whereNode()  {}
func (LessThan) whereNode()     {}
func (Within) whereNode()       {}
func (FullText) whereNode()     {}
func (Inside) whereNode()       {}
func (Overlaps) whereNode()     {}

// AllOf joins filters with AND. One filter is returned as is.
func AllOf(first Where, rest ...Where) Where {
	w := first
	for _, r := range rest {
		w = And{Left: w, Right: r}
	}
	return w
}

// AnyOf joins filters with OR.
func AnyOf(first Where, rest ...Where) Where {
	w := first
	for _, r := range rest {
		w = Or{Left: w, Right: r}
	}
	return w
}

func Handle(h string) Where                       { return HandleEquals{Handle: h} }
func Eq(f *schema.Field, v any) Where             { return Equals{Field: f, Value: v} }
func IsNull(f *schema.Field) Where                { return Equals{Field: f} }
func Range(f *schema.Field, start, end any) Where { return Between{Field: f, Start: start, End: end} }
func Gt(f *schema.Field, v any) Where             { return GreaterThan{Field: f, Value: v} }
func Lt(f *schema.Field, v any) Where             { return LessThan{Field: f, Value: v} }
func OneOf(f *schema.Field, vs ...any) Where      { return Within{Field: f, Values: vs} }
func Matches(f *schema.Field, q string) Where     { return FullText{Field: f, Query: q} }

func InsideOf(f *schema.Field, b schema.GeoBounds) Where   { return Inside{Field: f, Bounds: b} }
func Overlapping(f *schema.Field, b schema.GeoBounds) Where { return Overlaps{Field: f, Bounds: b} }

// Order sorts by a scalar field.
type Order interface {
	orderNode()
}

type Asc struct{ Field *schema.Field }
type Desc struct{ Field *schema.Field }

func (Asc) orderNode()  {}
func (Desc) orderNode() {}

func Ascending(f *schema.Field) Order  { return Asc{Field: f} }
func Descending(f *schema.Field) Order { return Desc{Field: f} }
