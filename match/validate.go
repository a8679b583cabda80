package match

import (
	"fmt"

	glerr "github.com/roach88/graphlite/pkg/errors"
	"github.com/roach88/graphlite/schema"
)

// Validate checks a match for structural and capability mistakes:
// missing schemas, fields of another schema, range or order predicates on
// non-scalar fields, full-text predicates on plain fields, geo predicates
// on non-geo fields, and operands of the wrong type.
//
// Every problem is collected. The returned error carries
// query.match.invalid, or query.match.unsupported when a variant from
// outside this package is found.
//
// Validate is a pure function with no side effects.
func Validate(m ElementMatch) error {
	v := &validator{}
	v.validateMatch(m)
	if len(v.problems) == 0 {
		return nil
	}
	code := glerr.CodeQueryMatchInvalid
	if v.unsupported {
		code = glerr.CodeQueryMatchUnsupported
	}
	return glerr.New(code, fmt.Sprintf("invalid match: %v", v.problems), glerr.Field("problems", v.problems))
}

// validator accumulates problems during traversal.
type validator struct {
	problems    []string
	unsupported bool
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateMatch(m ElementMatch) {
	switch m := m.(type) {
	case nil:
		v.addProblem("match is nil")
	case *NodesBySchema:
		if m == nil {
			v.addProblem("match is nil")
			return
		}
		v.validateLeaf(m.Of, m.Filter, m.Sort)
	case *EdgesBySchema:
		if m == nil {
			v.addProblem("match is nil")
			return
		}
		v.validateLeaf(m.Of, m.Filter, m.Sort)
	case *EdgesFromNodes:
		if m == nil {
			v.addProblem("match is nil")
			return
		}
		v.validateMatch(m.From)
		v.validateMatch(m.Edges)
	case *NodesFromEdges:
		if m == nil {
			v.addProblem("match is nil")
			return
		}
		v.validateMatch(m.From)
		v.validateMatch(m.Nodes)
	case *NeighbourNodes:
		if m == nil {
			v.addProblem("match is nil")
			return
		}
		v.validateMatch(m.From)
		v.validateMatch(m.Nodes)
	default:
		v.unsupported = true
		v.addProblem("unsupported match type %T", m)
	}
}

func (v *validator) validateLeaf(s *schema.Schema, w Where, o Order) {
	if s == nil {
		v.addProblem("match has no schema")
		return
	}
	if w != nil {
		v.validateWhere(s, w)
	}
	if o != nil {
		v.validateOrder(s, o)
	}
}

func (v *validator) validateWhere(s *schema.Schema, w Where) {
	switch w := w.(type) {
	case And:
		v.validateWhere(s, w.Left)
		v.validateWhere(s, w.Right)
	case Or:
		v.validateWhere(s, w.Left)
		v.validateWhere(s, w.Right)
	case HandleEquals:
	case Equals:
		if !v.checkField(s, w.Field, "equals") {
			return
		}
		if !w.Field.Indexable() {
			v.addProblem("equals: field %q is not indexable", w.Field.Handle())
			return
		}
		if w.Value == nil {
			if !w.Field.Optional() {
				v.addProblem("equals: field %q is required and can never be null", w.Field.Handle())
			}
			return
		}
		v.checkOperand(w.Field, w.Value, "equals")
	case Between:
		if v.checkScalar(s, w.Field, "between") {
			v.checkOperand(w.Field, w.Start, "between")
			v.checkOperand(w.Field, w.End, "between")
		}
	case GreaterThan:
		if v.checkScalar(s, w.Field, "greater than") {
			v.checkOperand(w.Field, w.Value, "greater than")
		}
	case LessThan:
		if v.checkScalar(s, w.Field, "less than") {
			v.checkOperand(w.Field, w.Value, "less than")
		}
	case Within:
		if v.checkScalar(s, w.Field, "within") {
			for _, val := range w.Values {
				v.checkOperand(w.Field, val, "within")
			}
		}
	case FullText:
		if v.checkField(s, w.Field, "full text") && w.Field.Type().Kind != schema.TextFullText {
			v.addProblem("full text: field %q is not full-text indexed", w.Field.Handle())
		}
	case Inside:
		v.checkGeo(s, w.Field, w.Bounds, "inside")
	case Overlaps:
		v.checkGeo(s, w.Field, w.Bounds, "overlaps")
	case nil:
		v.addProblem("where is nil")
	default:
		v.unsupported = true
		v.addProblem("unsupported where type %T", w)
	}
}

func (v *validator) validateOrder(s *schema.Schema, o Order) {
	switch o := o.(type) {
	case Asc:
		v.checkScalar(s, o.Field, "order")
	case Desc:
		v.checkScalar(s, o.Field, "order")
	default:
		v.unsupported = true
		v.addProblem("unsupported order type %T", o)
	}
}

func (v *validator) checkField(s *schema.Schema, f *schema.Field, op string) bool {
	if f == nil {
		v.addProblem("%s: field is nil", op)
		return false
	}
	if !f.BelongsTo(s) {
		v.addProblem("%s: field %q does not belong to schema %s", op, f.Handle(), s)
		return false
	}
	return true
}

func (v *validator) checkScalar(s *schema.Schema, f *schema.Field, op string) bool {
	if !v.checkField(s, f, op) {
		return false
	}
	if !f.Scalar() {
		v.addProblem("%s: field %q of type %s is not scalar", op, f.Handle(), f.Type())
		return false
	}
	return true
}

func (v *validator) checkOperand(f *schema.Field, value any, op string) {
	if _, err := schema.NormalizeValue(schema.Required(f.Type().Kind), value); err != nil {
		v.addProblem("%s: operand %v is not valid for field %q: %v", op, value, f.Handle(), err)
	}
}

func (v *validator) checkGeo(s *schema.Schema, f *schema.Field, b schema.GeoBounds, op string) {
	if !v.checkField(s, f, op) {
		return
	}
	if f.Type().Kind != schema.Geo {
		v.addProblem("%s: field %q is not a geo field", op, f.Handle())
		return
	}
	if err := b.Validate(); err != nil {
		v.addProblem("%s: %v", op, err)
	}
}
