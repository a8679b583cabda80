package graphlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphlite/match"
	glerr "github.com/roach88/graphlite/pkg/errors"
	"github.com/roach88/graphlite/schema"
)

// socialGraph seeds:
//
//	loves: ab (a->b), ba (b->a), ca (c->a)
//	likes: ac (a->c), db (d->b), bc (b--c, undirected)
func socialGraph(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.node(t, "a", "Ann Smith")
	f.node(t, "b", "Bob Smith")
	f.node(t, "c", "Cat Jones")
	f.node(t, "d", "Dan Jones")
	for _, e := range []string{"ab", "ba", "ca"} {
		f.edge(t, e, f.loves)
		f.directed(t, e, e[:1], e[1:])
	}
	for _, e := range []string{"ac", "db", "bc"} {
		f.edge(t, e, f.likes)
	}
	f.directed(t, "ac", "a", "c")
	f.directed(t, "db", "d", "b")
	_, err := f.db.ConnectDirected(f.ctx, "bc", "b", "c", false)
	require.NoError(t, err)
	return f
}

func (f *fixture) people() *match.NodesBySchema { return match.Nodes(f.person.Schema) }

func (f *fixture) who(h string) *match.NodesBySchema {
	return match.Nodes(f.person.Schema).Where(match.Handle(h))
}

func (f *fixture) nodes(t *testing.T, m match.NodeMatch) []string {
	t.Helper()
	got, err := f.db.QueryNodes(f.ctx, m)
	require.NoError(t, err)
	return nodeHandles(got)
}

func (f *fixture) edges(t *testing.T, m match.EdgeMatch) []string {
	t.Helper()
	got, err := f.db.QueryEdges(f.ctx, m)
	require.NoError(t, err)
	return edgeHandles(got)
}

func TestQuery_BySchema(t *testing.T) {
	f := socialGraph(t)
	assert.Equal(t, []string{"a", "b", "c", "d"}, f.nodes(t, f.people()))
	assert.Equal(t, []string{"ab", "ba", "ca"}, f.edges(t, match.Edges(f.loves)))
	assert.Equal(t, []string{"ac", "bc", "db"}, f.edges(t, match.Edges(f.likes)))
	assert.Empty(t, f.nodes(t, match.Nodes(f.animal)))
	assert.Empty(t, f.nodes(t, match.Nodes(f.loves)), "edges are not nodes")
}

func TestQuery_ByHandle(t *testing.T) {
	f := socialGraph(t)
	assert.Equal(t, []string{"b"}, f.nodes(t, f.who("b")))
	assert.Equal(t, []string{"ca"}, f.edges(t, match.Edges(f.loves).Where(match.Handle("ca"))))
	assert.Empty(t, f.nodes(t, f.who("ab")))
	assert.Empty(t, f.nodes(t, f.who("zed")))
}

func TestQuery_AndOr(t *testing.T) {
	f := socialGraph(t)
	assert.Equal(t, []string{"a", "c"},
		f.nodes(t, f.people().Where(match.AnyOf(match.Handle("c"), match.Handle("a")))))
	assert.Equal(t, []string{"b"},
		f.nodes(t, f.people().Where(match.AllOf(match.Matches(f.person.name, "Smith"), match.Handle("b")))))
	assert.Empty(t, f.nodes(t, f.people().Where(match.AllOf(match.Handle("a"), match.Handle("b")))))
}

func TestQuery_FullText(t *testing.T) {
	f := socialGraph(t)
	assert.Equal(t, []string{"a", "b"}, f.nodes(t, f.people().Where(match.Matches(f.person.name, "Smith"))))
	assert.Equal(t, []string{"c", "d"}, f.nodes(t, f.people().Where(match.Matches(f.person.name, "jones"))))
	assert.Empty(t, f.nodes(t, f.people().Where(match.Matches(f.person.name, "Smithers"))))
}

func TestQuery_Traversal(t *testing.T) {
	f := socialGraph(t)
	loves, likes := match.Edges(f.loves), match.Edges(f.likes)

	tests := []struct {
		name string
		got  func() []string
		want []string
	}{
		{"outgoing", func() []string { return f.edges(t, match.Outgoing(f.who("a"), loves)) }, []string{"ab"}},
		{"incoming", func() []string { return f.edges(t, match.Incoming(f.who("a"), loves)) }, []string{"ba", "ca"}},
		{"via", func() []string { return f.edges(t, match.Via(f.who("a"), loves)) }, []string{"ab", "ba", "ca"}},
		{"via undirected", func() []string { return f.edges(t, match.Via(f.who("c"), likes)) }, []string{"ac", "bc"}},
		{"outgoing skips undirected", func() []string { return f.edges(t, match.Outgoing(f.who("b"), likes)) }, nil},
		{"edges from several nodes", func() []string { return f.edges(t, match.Outgoing(f.people(), loves)) }, []string{"ab", "ba", "ca"}},
		{"endpoints", func() []string { return f.nodes(t, match.Endpoints(likes.Where(match.Handle("bc")), f.people())) }, []string{"b", "c"}},
		{"sources", func() []string { return f.nodes(t, match.Sources(loves, f.people())) }, []string{"a", "b", "c"}},
		{"targets", func() []string { return f.nodes(t, match.Targets(loves, f.people())) }, []string{"a", "b"}},
		{"undirected has no source", func() []string { return f.nodes(t, match.Sources(likes.Where(match.Handle("bc")), f.people())) }, nil},
		{"adjacent", func() []string { return f.nodes(t, match.Adjacent(f.who("b"), f.people())) }, []string{"a", "c", "d"}},
		{"adjacent of leaf", func() []string { return f.nodes(t, match.Adjacent(f.who("d"), f.people())) }, []string{"b"}},
		{"source neighbours", func() []string { return f.nodes(t, match.SourceNeighbours(f.who("b"), f.people())) }, []string{"a", "d"}},
		{"target neighbours", func() []string { return f.nodes(t, match.TargetNeighbours(f.who("b"), f.people())) }, []string{"a"}},
		{"target neighbours of leaf", func() []string { return f.nodes(t, match.TargetNeighbours(f.who("d"), f.people())) }, []string{"b"}},
		{"source neighbours of leaf", func() []string { return f.nodes(t, match.SourceNeighbours(f.who("d"), f.people())) }, nil},
		{"filtered targets", func() []string {
			return f.nodes(t, match.Targets(match.Outgoing(f.people().Where(match.Matches(f.person.name, "Smith")), loves), f.people()))
		}, []string{"a", "b"}},
		{"two hops", func() []string {
			return f.nodes(t, match.Endpoints(match.Via(match.Targets(match.Outgoing(f.who("a"), likes), f.people()), likes), f.people()))
		}, []string{"a", "b", "c"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.got()
			if tc.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

// lovedBack returns whom the people loved by from love in turn.
func (f *fixture) lovedBack(from match.NodeMatch) match.NodeMatch {
	loved := match.Targets(match.Outgoing(from, match.Edges(f.loves)), f.people())
	return match.Targets(match.Outgoing(loved, match.Edges(f.loves)), f.people())
}

func TestQuery_MutualLove(t *testing.T) {
	f := socialGraph(t)
	assert.Equal(t, []string{"a"}, f.nodes(t, f.lovedBack(f.who("a"))), "a and b love each other")
	assert.Equal(t, []string{"b"}, f.nodes(t, f.lovedBack(f.who("b"))))
}

func TestQuery_UnrequitedLove(t *testing.T) {
	f := socialGraph(t)
	assert.NotContains(t, f.nodes(t, f.lovedBack(f.who("c"))), "c", "c loves a, who loves b")
	assert.Empty(t, f.nodes(t, f.lovedBack(f.who("d"))))
}

func TestQuery_Chain(t *testing.T) {
	f := newFixture(t)
	f.node(t, "a", "A")
	f.node(t, "b", "B")
	f.node(t, "c", "C")
	f.edge(t, "ab", f.likes)
	f.edge(t, "bc", f.likes)
	f.directed(t, "ab", "a", "b")
	f.directed(t, "bc", "b", "c")

	next := func(from match.NodeMatch) match.NodeMatch {
		return match.Targets(match.Outgoing(from, match.Edges(f.likes)), f.people())
	}
	one := next(f.who("a"))
	two := next(one)

	assert.Equal(t, []string{"b"}, f.nodes(t, one))
	assert.Equal(t, []string{"c"}, f.nodes(t, two))
	assert.Empty(t, f.nodes(t, next(two)))
}

// forest seeds trees with every field kind; t4 has only nulls.
func forest(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	rows := []struct {
		handle   string
		age      int
		diameter float64
		location schema.GeoBounds
		name     string
	}{
		{"t1", 10, 0.5, schema.Point(1, 1), "Ash"},
		{"t2", 20, 1.5, schema.Point(5, 5), "Birch"},
		{"t3", 30, 2.5, schema.MustGeoBounds(0, 10, 0, 10), "Cedar"},
	}
	for _, r := range rows {
		fm := f.treeFields(t, func(m *schema.MutableFieldMap) {
			m.Set(f.tree.age, r.age).
				Set(f.tree.diameter, r.diameter).
				Set(f.tree.location, r.location).
				Set(f.tree.name, r.name)
		})
		_, err := f.db.CreateNodeWithHandle(f.ctx, r.handle, fm)
		require.NoError(t, err)
	}
	_, err := f.db.CreateNodeWithHandle(f.ctx, "t4", f.treeFields(t, nil))
	require.NoError(t, err)
	return f
}

func TestQuery_Predicates(t *testing.T) {
	f := forest(t)
	trees := func(w match.Where) []string { return f.nodes(t, match.Nodes(f.tree.Schema).Where(w)) }

	tests := []struct {
		name  string
		where match.Where
		want  []string
	}{
		{"text equals", match.Eq(f.tree.name, "Birch"), []string{"t2"}},
		{"long equals", match.Eq(f.tree.age, 30), []string{"t3"}},
		{"geo equals", match.Eq(f.tree.location, schema.Point(5, 5)), []string{"t2"}},
		{"is null", match.IsNull(f.tree.name), []string{"t4"}},
		{"between is inclusive", match.Range(f.tree.age, 10, 20), []string{"t1", "t2"}},
		{"greater than", match.Gt(f.tree.age, 10), []string{"t2", "t3"}},
		{"less than", match.Lt(f.tree.diameter, 2.0), []string{"t1", "t2"}},
		{"within", match.OneOf(f.tree.name, "Ash", "Cedar", "Fir"), []string{"t1", "t3"}},
		{"inside", match.InsideOf(f.tree.location, schema.MustGeoBounds(0, 6, 0, 6)), []string{"t1", "t2"}},
		{"overlapping", match.Overlapping(f.tree.location, schema.MustGeoBounds(4, 6, 4, 6)), []string{"t2", "t3"}},
		{"all of", match.AllOf(match.Gt(f.tree.age, 10), match.Lt(f.tree.age, 30)), []string{"t2"}},
		{"any of", match.AnyOf(match.Eq(f.tree.name, "Ash"), match.IsNull(f.tree.age)), []string{"t1", "t4"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, trees(tc.where))
		})
	}
}

func TestQuery_Ordering(t *testing.T) {
	f := forest(t)
	aged := match.Nodes(f.tree.Schema).Where(match.Gt(f.tree.age, 0))

	assert.Equal(t, []string{"t3", "t2", "t1"}, f.nodes(t, aged.OrderBy(match.Descending(f.tree.age))))

	named := match.Nodes(f.tree.Schema).Where(match.OneOf(f.tree.name, "Cedar", "Ash")).
		OrderBy(match.Descending(f.tree.name))
	assert.Equal(t, []string{"t3", "t1"}, f.nodes(t, named))

	thin := match.Nodes(f.tree.Schema).Where(match.Lt(f.tree.diameter, 3.0)).
		OrderBy(match.Ascending(f.tree.diameter))
	assert.Equal(t, []string{"t1", "t2", "t3"}, f.nodes(t, thin))
}

func TestQuery_InvalidMatch(t *testing.T) {
	f := forest(t)
	_, err := f.db.QueryNodes(f.ctx, match.Nodes(f.tree.Schema).OrderBy(match.Ascending(f.tree.location)))
	assert.True(t, glerr.HasCode(err, glerr.CodeQueryMatchInvalid), "got %v", err)

	_, err = f.db.QueryNodes(f.ctx, match.Nodes(f.tree.Schema).Where(match.Eq(f.person.name, "x")))
	assert.True(t, glerr.HasCode(err, glerr.CodeQueryMatchInvalid), "foreign field: %v", err)
}

func TestQuery_UnknownSchema(t *testing.T) {
	f := forest(t)
	ghost := schema.New("ghost", 1)
	ghostName := ghost.TextField("n")

	_, err := f.db.QueryNodes(f.ctx, match.Nodes(ghost))
	assert.True(t, glerr.IsNotFound(err), "got %v", err)

	_, err = f.db.QueryNodes(f.ctx, match.Nodes(ghost).Where(match.Eq(ghostName, "x")))
	assert.True(t, glerr.IsNotFound(err), "got %v", err)
}

func TestNodes_Iterates(t *testing.T) {
	f := socialGraph(t)

	var seen []string
	for n, err := range f.db.Nodes(f.ctx, f.people()) {
		require.NoError(t, err)
		seen = append(seen, n.Handle)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)

	var edges []string
	for e, err := range f.db.Edges(f.ctx, match.Edges(f.loves)) {
		require.NoError(t, err)
		edges = append(edges, e.Handle)
	}
	assert.Equal(t, []string{"ab", "ba", "ca"}, edges)
}

func TestNodes_YieldsError(t *testing.T) {
	f := forest(t)
	calls := 0
	for _, err := range f.db.Nodes(f.ctx, match.Nodes(f.tree.Schema).OrderBy(match.Ascending(f.tree.location))) {
		calls++
		assert.Error(t, err)
	}
	assert.Equal(t, 1, calls)
}

func TestQuery_HydratesValues(t *testing.T) {
	f := forest(t)
	got, err := f.db.QueryNodes(f.ctx, match.Nodes(f.tree.Schema).Where(match.Handle("t3")))
	require.NoError(t, err)
	require.Len(t, got, 1)

	loc, ok := got[0].Fields.Geo(f.tree.location)
	require.True(t, ok)
	assert.Equal(t, schema.MustGeoBounds(0, 10, 0, 10), loc)
	name, _ := got[0].Fields.Text(f.tree.name)
	assert.Equal(t, "Cedar", name)
	assert.Same(t, f.tree.Schema, got[0].Schema())
}
