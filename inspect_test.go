package graphlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemasListsPersisted(t *testing.T) {
	f := newFixture(t)

	got, err := f.db.Schemas(f.ctx)
	require.NoError(t, err)

	var names []string
	for _, s := range got {
		names = append(names, s.String())
	}
	assert.Equal(t, []string{"animal@1", "likes@1", "loves@1", "person@1", "tree@1"}, names)
	assert.Same(t, f.person.Schema, got[3])
}

func TestStatsCountsPerSchema(t *testing.T) {
	f := newFixture(t)
	f.node(t, "a", "Ann")
	f.node(t, "b", "Bob")
	f.node(t, "c", "Cat")
	f.edge(t, "ab", f.loves)
	f.directed(t, "ab", "a", "b")
	f.edge(t, "bc", f.likes)
	_, err := f.db.ConnectDirected(f.ctx, "bc", "b", "c", false)
	require.NoError(t, err)
	f.edge(t, "lonely", f.likes)

	stats, err := f.db.Stats(f.ctx)
	require.NoError(t, err)

	by := make(map[string]SchemaStats)
	for _, st := range stats {
		by[st.Schema.String()] = st
	}
	assert.Equal(t, 3, by["person@1"].Nodes)
	assert.Zero(t, by["person@1"].Edges)
	assert.Zero(t, by["person@1"].Connections)
	assert.Equal(t, 1, by["loves@1"].Edges)
	assert.Equal(t, 2, by["loves@1"].Connections)
	assert.Equal(t, 2, by["likes@1"].Edges)
	assert.Equal(t, 2, by["likes@1"].Connections)
	assert.Zero(t, by["tree@1"].Nodes)
}
