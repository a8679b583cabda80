package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimal = `
name: minimal
description: one node
schemas:
  - {handle: tag, version: 1, fields: [{handle: label, type: text}]}
nodes:
  - {handle: t, schema: tag, fields: {label: x}}
assertions:
  - {type: count, schema: tag, count: 1}
`

func TestLoadScenario_ValidFile(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	require.Len(t, s.Schemas, 1)
	assert.Equal(t, "tag", s.Schemas[0].Handle)
	assert.Equal(t, "text", s.Schemas[0].Fields[0].Type)
	require.Len(t, s.Nodes, 1)
	assert.Equal(t, "x", s.Nodes[0].Fields["label"])
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, 1, *s.Assertions[0].Count)
}

func TestLoadScenario_ResolvesSpecs(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "forest", "forest.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("testdata", "forest", "schemas")}, s.Specs)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, minimal+"assertion: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no name", "description: d\nschemas: [{handle: x, version: 1}]\nassertions: [{type: count, schema: x, count: 0}]\n", "name is required"},
		{"no description", "name: n\nschemas: [{handle: x, version: 1}]\nassertions: [{type: count, schema: x, count: 0}]\n", "description is required"},
		{"no schemas", "name: n\ndescription: d\nassertions: [{type: count, schema: x, count: 0}]\n", "specs or schemas is required"},
		{"no assertions", "name: n\ndescription: d\nschemas: [{handle: x, version: 1}]\n", "assertions list is required"},
		{"missing spec dir", "name: n\ndescription: d\nspecs: [nowhere]\nassertions: [{type: count, schema: x, count: 0}]\n", "spec directory not found"},
		{"node without schema", "name: n\ndescription: d\nschemas: [{handle: x, version: 1}]\nnodes: [{handle: a}]\nassertions: [{type: count, schema: x, count: 0}]\n", "nodes[0]"},
		{"half connected edge", "name: n\ndescription: d\nschemas: [{handle: x, version: 1}]\nedges: [{handle: e, schema: x, source: a}]\nassertions: [{type: count, schema: x, count: 0}]\n", "source and target"},
		{"query without match", "name: n\ndescription: d\nschemas: [{handle: x, version: 1}]\nassertions: [{type: query}]\n", "match is required"},
		{"count without number", "name: n\ndescription: d\nschemas: [{handle: x, version: 1}]\nassertions: [{type: count, schema: x}]\n", "schema and count"},
		{"unknown type", "name: n\ndescription: d\nschemas: [{handle: x, version: 1}]\nassertions: [{type: trace}]\n", "unknown assertion type"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestEdgeStepDirectedDefault(t *testing.T) {
	directed := false
	assert.True(t, EdgeStep{}.directed())
	assert.False(t, EdgeStep{Directed: &directed}.directed())
}
