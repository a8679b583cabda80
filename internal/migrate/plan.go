// Package migrate reconciles declared schemas with the schemas persisted
// in a database.
//
// Plan is pure: it reads the declared set, the persisted set and the
// registered migration steps, and returns what must happen, or the first
// configuration error. Nothing is executed here, so every error Plan
// reports is detected before storage is touched.
//
// Classification per declared schema:
//
//	stored version == declared, same fields  -> unchanged
//	handle not stored                        -> create
//	stored version == declared, other fields -> conflict (recreate if allowed)
//	stored version <  declared               -> upgrade through every step
//	stored version >  declared               -> downgrade (always an error)
//
// Persisted handles that are no longer declared are dropped.
package migrate

import (
	"fmt"
	"sort"
	"strings"

	glerr "github.com/roach88/graphlite/pkg/errors"
	"github.com/roach88/graphlite/schema"
)

// Persisted is a schema loaded from the Schema and Field tables.
type Persisted struct {
	ID       string
	Schema   *schema.Schema
	FieldIDs map[string]string // field handle -> Field.id
}

func (p Persisted) String() string { return p.Schema.String() }

// Step migrates elements from one version of a schema to the next.
type Step struct {
	From, To *schema.Schema
}

// Registry holds the registered steps by schema handle and target version.
type Registry map[string]map[int]Step

// Add registers a step. To must be the next version of From.
func (r Registry) Add(from, to *schema.Schema) error {
	if from.Handle() != to.Handle() {
		return glerr.New(glerr.CodeMigrationStepInvalid,
			fmt.Sprintf("migration from %s to %s changes the schema handle", from, to),
			glerr.FieldSchema(to.Handle(), to.Version())...)
	}
	if to.Version() != from.Version()+1 {
		return glerr.New(glerr.CodeMigrationStepInvalid,
			fmt.Sprintf("migration from %s to %s must advance exactly one version", from, to),
			glerr.FieldSchema(to.Handle(), to.Version())...)
	}
	steps, ok := r[to.Handle()]
	if !ok {
		steps = make(map[int]Step)
		r[to.Handle()] = steps
	}
	if _, dup := steps[to.Version()]; dup {
		return glerr.New(glerr.CodeMigrationStepConflict,
			fmt.Sprintf("migration to %s is already registered", to),
			glerr.FieldSchema(to.Handle(), to.Version())...)
	}
	steps[to.Version()] = Step{From: from, To: to}
	return nil
}

// Upgrade moves one schema from its stored version to the declared one.
type Upgrade struct {
	Stored Persisted
	Target *schema.Schema
	Steps  []Step // in version order, Steps[len-1].To is Target
}

// Intermediates returns the versions strictly between stored and target.
// They exist only while the steps run.
func (u Upgrade) Intermediates() []*schema.Schema {
	out := make([]*schema.Schema, 0, len(u.Steps))
	for _, st := range u.Steps[:len(u.Steps)-1] {
		out = append(out, st.To)
	}
	return out
}

// Plan is the outcome of reconciling declared and persisted schemas.
type Plan struct {
	Unchanged []*schema.Schema
	// Recreate lists conflicting schemas dropped, with their elements,
	// before anything is created.
	Recreate []Persisted
	// Create lists new schemas and the replacements of Recreate.
	Create   []*schema.Schema
	Upgrades []Upgrade
	// Retire lists older versions of declared schemas that linger in
	// storage. They are dropped once no element references them.
	Retire []Persisted
	// Undeclared lists persisted handles that are no longer declared.
	Undeclared []Persisted
}

// Empty reports whether the plan leaves storage untouched.
func (p *Plan) Empty() bool {
	return len(p.Recreate) == 0 && len(p.Create) == 0 && len(p.Upgrades) == 0 &&
		len(p.Retire) == 0 && len(p.Undeclared) == 0
}

// Describe returns one line per planned action, in execution order.
func (p *Plan) Describe() []string {
	var lines []string
	for _, r := range p.Recreate {
		lines = append(lines, "recreate "+r.String())
	}
	for _, s := range p.Create {
		lines = append(lines, "create "+s.String())
	}
	for _, u := range p.Upgrades {
		versions := make([]string, 0, len(u.Steps))
		for _, st := range u.Steps {
			versions = append(versions, fmt.Sprint(st.To.Version()))
		}
		lines = append(lines, fmt.Sprintf("upgrade %s -> %s (steps %s)",
			u.Stored, u.Target, strings.Join(versions, ", ")))
	}
	for _, r := range p.Retire {
		lines = append(lines, "retire "+r.String())
	}
	for _, d := range p.Undeclared {
		lines = append(lines, "drop "+d.String())
	}
	return lines
}

// Build reconciles declared against persisted. Declared handles must be
// unique. With deleteOnConflict, a schema whose fields changed without a
// version bump is dropped and recreated instead of failing.
func Build(declared []*schema.Schema, persisted []Persisted, steps Registry, deleteOnConflict bool) (*Plan, error) {
	byHandle := make(map[string][]Persisted)
	for _, p := range persisted {
		h := p.Schema.Handle()
		byHandle[h] = append(byHandle[h], p)
	}
	for _, versions := range byHandle {
		sort.Slice(versions, func(i, j int) bool {
			return versions[i].Schema.Version() < versions[j].Schema.Version()
		})
	}

	plan := &Plan{}
	seen := make(map[string]bool, len(declared))
	for _, d := range declared {
		if seen[d.Handle()] {
			return nil, glerr.New(glerr.CodeMigrationRegisterInvalid,
				fmt.Sprintf("schema %q is declared twice", d.Handle()),
				glerr.FieldSchema(d.Handle(), d.Version())...)
		}
		seen[d.Handle()] = true

		versions := byHandle[d.Handle()]
		if len(versions) == 0 {
			plan.Create = append(plan.Create, d)
			continue
		}
		stored := versions[len(versions)-1]
		plan.Retire = append(plan.Retire, versions[:len(versions)-1]...)

		switch sv := stored.Schema.Version(); {
		case sv > d.Version():
			return nil, glerr.New(glerr.CodeMigrationSchemaDowngrade,
				fmt.Sprintf("schema %q is stored at version %d, newer than declared version %d",
					d.Handle(), sv, d.Version()),
				glerr.FieldSchema(d.Handle(), d.Version())...)

		case sv == d.Version():
			if stored.Schema.SameFields(d) {
				plan.Unchanged = append(plan.Unchanged, d)
				continue
			}
			if !deleteOnConflict {
				return nil, glerr.New(glerr.CodeMigrationSchemaConflict,
					fmt.Sprintf("schema %s has a conflict: stored fields %v, declared fields %v",
						d, stored.Schema.Signature(), d.Signature()),
					glerr.FieldSchema(d.Handle(), d.Version())...)
			}
			plan.Recreate = append(plan.Recreate, stored)
			plan.Create = append(plan.Create, d)

		default:
			up, err := upgrade(stored, d, steps)
			if err != nil {
				return nil, err
			}
			plan.Upgrades = append(plan.Upgrades, up)
		}
	}

	var undeclared []string
	for h := range byHandle {
		if !seen[h] {
			undeclared = append(undeclared, h)
		}
	}
	sort.Strings(undeclared)
	for _, h := range undeclared {
		plan.Undeclared = append(plan.Undeclared, byHandle[h]...)
	}

	return plan, nil
}

// upgrade collects the contiguous steps from stored to target and checks
// that they chain: the first starts at the stored fields, each starts where
// the previous one ended, and the last ends at the declared fields.
func upgrade(stored Persisted, target *schema.Schema, steps Registry) (Upgrade, error) {
	up := Upgrade{Stored: stored, Target: target}
	from := stored.Schema.Version()
	registered := steps[target.Handle()]

	var missing []string
	for v := from + 1; v <= target.Version(); v++ {
		st, ok := registered[v]
		if !ok {
			missing = append(missing, fmt.Sprintf("%d->%d", v-1, v))
			continue
		}
		up.Steps = append(up.Steps, st)
	}
	if len(missing) > 0 {
		return Upgrade{}, glerr.New(glerr.CodeMigrationStepMissing,
			fmt.Sprintf("missing migration for %q from version %d to version %d: steps %s",
				target.Handle(), from, target.Version(), strings.Join(missing, ", ")),
			append(glerr.FieldSchema(target.Handle(), target.Version()), glerr.Field("missing", missing))...)
	}

	prev := stored.Schema
	for _, st := range up.Steps {
		if !st.From.SameFields(prev) {
			return Upgrade{}, glerr.New(glerr.CodeMigrationStepInvalid,
				fmt.Sprintf("migration to %s starts from fields %v, but version %d has fields %v",
					st.To, st.From.Signature(), prev.Version(), prev.Signature()),
				glerr.FieldSchema(st.To.Handle(), st.To.Version())...)
		}
		prev = st.To
	}
	if !prev.SameFields(target) {
		return Upgrade{}, glerr.New(glerr.CodeMigrationStepInvalid,
			fmt.Sprintf("migration chain for %q ends at fields %v, but %s declares %v",
				target.Handle(), prev.Signature(), target, target.Signature()),
			glerr.FieldSchema(target.Handle(), target.Version())...)
	}
	return up, nil
}
