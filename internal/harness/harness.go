package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/graphlite"
	"github.com/roach88/graphlite/internal/compiler"
	"github.com/roach88/graphlite/schema"
)

// Harness holds the database a scenario runs against.
type Harness struct {
	db      *graphlite.DB
	schemas map[string]*schema.Schema
	logger  *slog.Logger
}

// Run executes a scenario against a fresh in-memory database. Setup
// failures (bad schemas, rejected writes) are returned as errors; failed
// assertions are reported in the result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	schemas, err := loadSchemas(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load schemas: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := graphlite.NewBuilder(":memory:", graphlite.WithLogger(logger))
	registered := make([]*schema.Schema, 0, len(schemas))
	for _, s := range schemas {
		registered = append(registered, s)
	}
	if err := b.Register(registered...); err != nil {
		return nil, fmt.Errorf("failed to register schemas: %w", err)
	}
	db, err := b.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	h := &Harness{db: db, schemas: schemas, logger: logger}
	result := NewResult()

	if err := h.seed(ctx, scenario, result); err != nil {
		return nil, fmt.Errorf("failed to seed graph: %w", err)
	}

	for _, msg := range h.EvaluateAssertions(ctx, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// loadSchemas builds the inline declarations and those found in the spec
// directories, keyed by handle.
func loadSchemas(scenario *Scenario) (map[string]*schema.Schema, error) {
	decls := make([]compiler.Declaration, 0, len(scenario.Schemas))
	for _, d := range scenario.Schemas {
		decls = append(decls, d.Normalize())
	}
	for _, dir := range scenario.Specs {
		loaded, errs := compiler.LoadDir(dir, true)
		if len(errs) > 0 {
			return nil, fmt.Errorf("%s: %w", dir, errs[0])
		}
		decls = append(decls, loaded.Declarations...)
	}

	if verrs := compiler.Validate(decls); len(verrs) > 0 {
		return nil, verrs[0]
	}

	out := make(map[string]*schema.Schema, len(decls))
	for _, d := range decls {
		s, err := d.Build()
		if err != nil {
			return nil, err
		}
		out[s.Handle()] = s
	}
	return out, nil
}

func (h *Harness) seed(ctx context.Context, scenario *Scenario, result *Result) error {
	return h.db.Transaction(ctx, func(ctx context.Context) error {
		for i, step := range scenario.Nodes {
			fm, err := h.fields(step.Schema, step.Fields)
			if err != nil {
				return fmt.Errorf("nodes[%d]: %w", i, err)
			}
			n, err := h.db.CreateNodeWithHandle(ctx, step.Handle, fm)
			if err != nil {
				return fmt.Errorf("nodes[%d]: %w", i, err)
			}
			if n == nil {
				return fmt.Errorf("nodes[%d]: handle %q is already taken", i, step.Handle)
			}
			result.record("node", step.Handle, fm.Schema().String(), "")
		}

		for i, step := range scenario.Edges {
			fm, err := h.fields(step.Schema, step.Fields)
			if err != nil {
				return fmt.Errorf("edges[%d]: %w", i, err)
			}
			e, err := h.db.CreateEdgeWithHandle(ctx, step.Handle, fm)
			if err != nil {
				return fmt.Errorf("edges[%d]: %w", i, err)
			}
			if e == nil {
				return fmt.Errorf("edges[%d]: handle %q is already taken", i, step.Handle)
			}
			result.record("edge", step.Handle, fm.Schema().String(), "")

			if step.Source == "" {
				continue
			}
			conns, err := h.db.ConnectDirected(ctx, step.Handle, step.Source, step.Target, step.directed())
			if err != nil {
				return fmt.Errorf("edges[%d]: %w", i, err)
			}
			for _, c := range conns {
				result.record("connect", step.Handle, "", c.String())
			}
		}
		return nil
	})
}

// fields builds a field map for the named schema from decoded YAML values.
func (h *Harness) fields(schemaHandle string, raw map[string]any) (*schema.FieldMap, error) {
	s, ok := h.schemas[schemaHandle]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", schemaHandle)
	}
	for key := range raw {
		if _, ok := s.Field(key); !ok {
			return nil, fmt.Errorf("schema %s has no field %q", s, key)
		}
	}

	m := schema.NewFieldMap(s)
	for _, f := range s.Fields() {
		v, ok := raw[f.Handle()]
		if !ok {
			continue
		}
		value, err := fieldValue(f, v)
		if err != nil {
			return nil, err
		}
		m.Set(f, value)
	}
	return m.Build()
}
