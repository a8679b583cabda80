package graphlite

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphlite/match"
	glerr "github.com/roach88/graphlite/pkg/errors"
)

func TestConnectDirected_IsAsymmetric(t *testing.T) {
	f := newFixture(t)
	f.node(t, "s", "Sam")
	f.node(t, "t", "Tia")
	f.edge(t, "e", f.likes)

	conns, err := f.db.ConnectDirected(f.ctx, "e", "s", "t", true)
	require.NoError(t, err)
	require.Len(t, conns, 2)
	assert.Equal(t, Connection{EdgeHandle: "e", NodeHandle: "s", Outgoing: Bool(true)}, conns[0])
	assert.Equal(t, Connection{EdgeHandle: "e", NodeHandle: "t", Outgoing: Bool(false)}, conns[1])

	from := func(h string) match.NodeMatch { return match.Nodes(f.person.Schema).Where(match.Handle(h)) }

	out, err := f.db.QueryEdges(f.ctx, match.Outgoing(from("s"), match.Edges(f.likes)))
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, edgeHandles(out))

	out, err = f.db.QueryEdges(f.ctx, match.Outgoing(from("t"), match.Edges(f.likes)))
	require.NoError(t, err)
	assert.Empty(t, out)

	in, err := f.db.QueryEdges(f.ctx, match.Incoming(from("t"), match.Edges(f.likes)))
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, edgeHandles(in))

	in, err = f.db.QueryEdges(f.ctx, match.Incoming(from("s"), match.Edges(f.likes)))
	require.NoError(t, err)
	assert.Empty(t, in)
}

func TestConnectDirected_Undirected(t *testing.T) {
	f := newFixture(t)
	f.node(t, "a", "Ann")
	f.node(t, "b", "Bob")
	f.edge(t, "e", f.likes)

	conns, err := f.db.ConnectDirected(f.ctx, "e", "a", "b", false)
	require.NoError(t, err)
	for _, c := range conns {
		assert.Nil(t, c.Outgoing)
	}

	out, err := f.db.QueryEdges(f.ctx, match.Outgoing(match.Nodes(f.person.Schema), match.Edges(f.likes)))
	require.NoError(t, err)
	assert.Empty(t, out, "undirected connections have no direction")

	via, err := f.db.QueryEdges(f.ctx, match.Via(match.Nodes(f.person.Schema).Where(match.Handle("b")), match.Edges(f.likes)))
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, edgeHandles(via))
}

func TestConnectDirected_SameNode(t *testing.T) {
	f := newFixture(t)
	f.node(t, "a", "Ann")
	f.edge(t, "e", f.likes)

	_, err := f.db.ConnectDirected(f.ctx, "e", "a", "a", true)
	assert.True(t, glerr.HasCode(err, glerr.CodeGraphConnectionInvalid), "got %v", err)
}

func TestConnectDirected_WritesBothOrNothing(t *testing.T) {
	f := newFixture(t)
	f.node(t, "a", "Ann")
	f.edge(t, "e", f.likes)

	_, err := f.db.ConnectDirected(f.ctx, "e", "a", "missing", true)
	require.Error(t, err)

	c, err := f.db.FindConnection(f.ctx, "e", "a")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestConnect_UnknownHandles(t *testing.T) {
	f := newFixture(t)
	f.node(t, "a", "Ann")
	f.edge(t, "e", f.likes)

	_, err := f.db.Connect(f.ctx, "nope", "a", nil)
	assert.True(t, glerr.HasCode(err, glerr.CodeStoreConstraintConflict), "unknown edge: %v", err)

	_, err = f.db.Connect(f.ctx, "e", "nope", nil)
	assert.True(t, glerr.HasCode(err, glerr.CodeStoreConstraintConflict), "unknown node: %v", err)

	assert.Equal(t, 0, count(t, f.db, "SELECT COUNT(*) FROM Connection"))
}

func TestConnect_Twice(t *testing.T) {
	f := newFixture(t)
	f.node(t, "a", "Ann")
	f.edge(t, "e", f.likes)

	_, err := f.db.Connect(f.ctx, "e", "a", nil)
	require.NoError(t, err)
	_, err = f.db.Connect(f.ctx, "e", "a", Bool(true))
	assert.True(t, glerr.IsConflict(err), "got %v", err)

	c, err := f.db.FindConnection(f.ctx, "e", "a")
	require.NoError(t, err)
	assert.Nil(t, c.Outgoing)
}

func TestConnectOrReplace(t *testing.T) {
	f := newFixture(t)
	f.node(t, "a", "Ann")
	f.edge(t, "e", f.likes)

	_, err := f.db.Connect(f.ctx, "e", "a", nil)
	require.NoError(t, err)
	c, err := f.db.ConnectOrReplace(f.ctx, "e", "a", Bool(false))
	require.NoError(t, err)
	assert.False(t, *c.Outgoing)

	stored, err := f.db.FindConnection(f.ctx, "e", "a")
	require.NoError(t, err)
	require.NotNil(t, stored.Outgoing)
	assert.False(t, *stored.Outgoing)
	assert.Equal(t, 1, count(t, f.db, "SELECT COUNT(*) FROM Connection"))
}

func TestConnectOrReplaceDirected(t *testing.T) {
	f := newFixture(t)
	f.node(t, "a", "Ann")
	f.node(t, "b", "Bob")
	f.edge(t, "e", f.likes)
	f.directed(t, "e", "a", "b")

	_, err := f.db.ConnectOrReplaceDirected(f.ctx, "e", "b", "a", true)
	require.NoError(t, err)

	c, err := f.db.FindConnection(f.ctx, "e", "b")
	require.NoError(t, err)
	assert.True(t, *c.Outgoing, "direction is reversed")
}

func TestGetOrConnect(t *testing.T) {
	f := newFixture(t)
	f.node(t, "a", "Ann")
	f.node(t, "b", "Bob")
	f.edge(t, "e", f.likes)

	first, err := f.db.GetOrConnect(f.ctx, "e", "a", nil)
	require.NoError(t, err)
	second, err := f.db.GetOrConnect(f.ctx, "e", "a", Bool(true))
	require.NoError(t, err)
	assert.Equal(t, first, second, "the stored connection wins")
	assert.Nil(t, second.Outgoing)

	pair, err := f.db.GetOrConnectDirected(f.ctx, "e", "a", "b", true)
	require.NoError(t, err)
	require.Len(t, pair, 2)
	assert.Nil(t, pair[0].Outgoing)
	assert.False(t, *pair[1].Outgoing)
}

func TestDisconnect(t *testing.T) {
	f := newFixture(t)
	f.node(t, "a", "Ann")
	f.edge(t, "e", f.likes)
	_, err := f.db.Connect(f.ctx, "e", "a", nil)
	require.NoError(t, err)

	ok, err := f.db.Disconnect(f.ctx, "e", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.db.Disconnect(f.ctx, "e", "a")
	require.NoError(t, err)
	assert.False(t, ok)

	c, err := f.db.FindConnection(f.ctx, "e", "a")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestGetConnections(t *testing.T) {
	f := newFixture(t)
	f.node(t, "a", "Ann")
	f.node(t, "b", "Bob")
	f.node(t, "c", "Cat")
	f.edge(t, "ab", f.likes)
	f.edge(t, "bc", f.loves)
	f.directed(t, "ab", "a", "b")
	f.directed(t, "bc", "b", "c")

	seq, err := f.db.GetConnections(f.ctx, "b")
	require.NoError(t, err)
	got := slices.Collect(seq)
	assert.Equal(t, []Connection{
		{EdgeHandle: "ab", NodeHandle: "b", Outgoing: Bool(false)},
		{EdgeHandle: "bc", NodeHandle: "b", Outgoing: Bool(true)},
	}, got)

	seq, err = f.db.GetConnections(f.ctx, "ab")
	require.NoError(t, err)
	var nodes []string
	for c := range seq {
		nodes = append(nodes, c.NodeHandle)
	}
	assert.Equal(t, []string{"a", "b"}, nodes)

	seq, err = f.db.GetConnections(f.ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, slices.Collect(seq))
}

func TestDeleteEdge_CascadesConnections(t *testing.T) {
	f := newFixture(t)
	f.node(t, "a", "Ann")
	f.node(t, "b", "Bob")
	f.edge(t, "e", f.likes)
	f.directed(t, "e", "a", "b")

	deleted, err := f.db.DeleteEdge(f.ctx, "e", true)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 0, count(t, f.db, "SELECT COUNT(*) FROM Connection"))
}

func TestConnection_String(t *testing.T) {
	assert.Equal(t, "a -> e", Connection{EdgeHandle: "e", NodeHandle: "a", Outgoing: Bool(true)}.String())
	assert.Equal(t, "a <- e", Connection{EdgeHandle: "e", NodeHandle: "a", Outgoing: Bool(false)}.String())
	assert.Equal(t, "a -- e", Connection{EdgeHandle: "e", NodeHandle: "a"}.String())
}
