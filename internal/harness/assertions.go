package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/graphlite/match"
	glerr "github.com/roach88/graphlite/pkg/errors"
)

// AssertionError describes a failed assertion.
type AssertionError struct {
	Type     string
	Name     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Name != "" {
		fmt.Fprintf(&buf, " %q", e.Name)
	}
	fmt.Fprintf(&buf, "\n  Expected: %s\n  Actual: %s", e.Expected, e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func (h *Harness) EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion) []string {
	var errors []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertQuery:
			err = h.assertQuery(ctx, result, a)
		case AssertConnections:
			err = h.assertConnections(ctx, a)
		case AssertCount:
			err = h.assertCount(ctx, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

func (h *Harness) assertQuery(ctx context.Context, result *Result, a Assertion) error {
	m, err := a.Match.Build(h.schemas)
	if err != nil {
		return fmt.Errorf("query %q: %w", a.Name, err)
	}

	handles, err := h.run(ctx, m)
	outcome := QueryOutcome{Name: a.Name, Handles: handles}
	if err != nil {
		outcome.Handles = []string{}
		outcome.Error = string(glerr.CodeOf(err))
	}
	result.Queries = append(result.Queries, outcome)
	result.record("query", "", m.Schema().String(), a.Name)

	if a.Error != "" {
		if outcome.Error != a.Error {
			return &AssertionError{Type: a.Type, Name: a.Name,
				Expected: "error " + a.Error, Actual: describe(outcome)}
		}
		return nil
	}
	if err != nil {
		return &AssertionError{Type: a.Type, Name: a.Name,
			Expected: fmt.Sprint(a.Expect), Actual: err.Error()}
	}
	if !sameHandles(a.Expect, handles, a.Unordered) {
		return &AssertionError{Type: a.Type, Name: a.Name,
			Expected: fmt.Sprint(a.Expect), Actual: fmt.Sprint(handles)}
	}
	return nil
}

func describe(o QueryOutcome) string {
	if o.Error != "" {
		return "error " + o.Error
	}
	return fmt.Sprint(o.Handles)
}

// run executes a match and returns the selected handles in result order.
func (h *Harness) run(ctx context.Context, m match.ElementMatch) ([]string, error) {
	handles := []string{}
	switch m := m.(type) {
	case match.NodeMatch:
		nodes, err := h.db.QueryNodes(ctx, m)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			handles = append(handles, n.Handle)
		}
	case match.EdgeMatch:
		edges, err := h.db.QueryEdges(ctx, m)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			handles = append(handles, e.Handle)
		}
	default:
		return nil, fmt.Errorf("unsupported match %T", m)
	}
	return handles, nil
}

func (h *Harness) assertConnections(ctx context.Context, a Assertion) error {
	conns, err := h.db.GetConnections(ctx, a.Handle)
	if err != nil {
		return fmt.Errorf("connections %q: %w", a.Handle, err)
	}
	var got []string
	for c := range conns {
		got = append(got, c.String())
	}
	if !sameHandles(a.Expect, got, a.Unordered) {
		return &AssertionError{Type: a.Type, Name: a.Handle,
			Expected: fmt.Sprint(a.Expect), Actual: fmt.Sprint(got)}
	}
	return nil
}

func (h *Harness) assertCount(ctx context.Context, a Assertion) error {
	stats, err := h.db.Stats(ctx)
	if err != nil {
		return fmt.Errorf("count %q: %w", a.Schema, err)
	}
	total := 0
	for _, st := range stats {
		if st.Schema.Handle() == a.Schema {
			total += st.Nodes + st.Edges
		}
	}
	if total != *a.Count {
		return &AssertionError{Type: a.Type, Name: a.Schema,
			Expected: fmt.Sprintf("%d elements", *a.Count), Actual: fmt.Sprintf("%d elements", total)}
	}
	return nil
}

func sameHandles(want, got []string, unordered bool) bool {
	if len(want) != len(got) {
		return false
	}
	if unordered {
		want, got = slices.Clone(want), slices.Clone(got)
		slices.Sort(want)
		slices.Sort(got)
	}
	return slices.Equal(want, got)
}
