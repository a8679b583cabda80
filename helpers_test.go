package graphlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/graphlite/schema"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type personSchema struct {
	*schema.Schema
	name *schema.Field
}

func newPersonV1() personSchema {
	s := schema.New("person", 1)
	return personSchema{Schema: s, name: s.FullTextField("n")}
}

type personV2Schema struct {
	*schema.Schema
	firstName, lastName *schema.Field
}

func newPersonV2() personV2Schema {
	s := schema.New("person", 2)
	return personV2Schema{Schema: s, firstName: s.TextField("fn"), lastName: s.TextField("ln")}
}

type treeSchema struct {
	*schema.Schema
	age, diameter, location, name, secret *schema.Field
}

func newTree() treeSchema {
	s := schema.New("tree", 1)
	return treeSchema{
		Schema:   s,
		age:      s.Optional().LongField("a"),
		diameter: s.Optional().DoubleField("d"),
		location: s.Optional().GeoField("l"),
		name:     s.Optional().TextField("n"),
		secret:   s.Optional().BlobField("s"),
	}
}

// fixture is a database with the schemas most tests share.
type fixture struct {
	db     *DB
	path   string
	ctx    context.Context
	animal *schema.Schema
	likes  *schema.Schema
	loves  *schema.Schema
	person personSchema
	tree   treeSchema

	animalName *schema.Field
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		path:   filepath.Join(t.TempDir(), "graph.db"),
		ctx:    context.Background(),
		animal: schema.New("animal", 1),
		likes:  schema.New("likes", 1),
		loves:  schema.New("loves", 1),
		person: newPersonV1(),
		tree:   newTree(),
	}
	f.animalName = f.animal.TextField("n")
	require.NoError(t, f.person.OnValidate(f.person.name, func(_ *schema.FieldMap, v any) bool {
		return v != "forbidden"
	}))

	b := NewBuilder(f.path, WithLogger(testLogger()))
	require.NoError(t, b.Register(f.animal, f.likes, f.loves, f.person.Schema, f.tree.Schema))
	db, err := b.Open(f.ctx)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	f.db = db
	return f
}

func (f *fixture) personFields(t *testing.T, name string) *schema.FieldMap {
	t.Helper()
	fm, err := schema.NewFieldMap(f.person.Schema).Set(f.person.name, name).Build()
	require.NoError(t, err)
	return fm
}

func (f *fixture) treeFields(t *testing.T, set func(m *schema.MutableFieldMap)) *schema.FieldMap {
	t.Helper()
	m := schema.NewFieldMap(f.tree.Schema)
	if set != nil {
		set(m)
	}
	fm, err := m.Build()
	require.NoError(t, err)
	return fm
}

func emptyFields(t *testing.T, s *schema.Schema) *schema.FieldMap {
	t.Helper()
	fm, err := schema.NewFieldMap(s).Build()
	require.NoError(t, err)
	return fm
}

func (f *fixture) node(t *testing.T, handle, name string) *Node {
	t.Helper()
	n, err := f.db.CreateNodeWithHandle(f.ctx, handle, f.personFields(t, name))
	require.NoError(t, err)
	require.NotNil(t, n)
	return n
}

func (f *fixture) edge(t *testing.T, handle string, s *schema.Schema) *Edge {
	t.Helper()
	e, err := f.db.CreateEdgeWithHandle(f.ctx, handle, emptyFields(t, s))
	require.NoError(t, err)
	require.NotNil(t, e)
	return e
}

func (f *fixture) directed(t *testing.T, edge, source, target string) {
	t.Helper()
	_, err := f.db.ConnectDirected(f.ctx, edge, source, target, true)
	require.NoError(t, err)
}

// elementID returns the internal id of an element.
func elementID(t *testing.T, db *DB, handle string) string {
	t.Helper()
	var id string
	require.NoError(t, db.store.QueryRow(context.Background(),
		"SELECT id FROM Element WHERE handle = ?", handle).Scan(&id))
	return id
}

func count(t *testing.T, db *DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.store.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

func nodeHandles(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Handle
	}
	return out
}

func edgeHandles(edges []Edge) []string {
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.Handle
	}
	return out
}

func sorted(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}
