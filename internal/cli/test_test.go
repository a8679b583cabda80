package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pairScenario = `name: pair
description: Two people and one directed edge.

schemas:
  - handle: person
    version: 1
    fields:
      - {handle: name, type: text}
  - handle: knows
    version: 1

nodes:
  - {handle: a, schema: person, fields: {name: Ann}}
  - {handle: b, schema: person, fields: {name: Bob}}

edges:
  - {handle: ab, schema: knows, source: a, target: b}

assertions:
  - type: query
    name: known by a
    match:
      targets:
        from: {edges: knows}
        to: {nodes: person}
    expect: [b]
  - type: connections
    handle: a
    expect: ["a -> ab"]
  - type: count
    schema: person
    count: %d
`

// writeScenario writes a pair scenario expecting count people.
func writeScenario(t *testing.T, dir, name string, count int) string {
	t.Helper()
	path := filepath.Join(dir, name+".yaml")
	content := []byte(fmt.Sprintf(pairScenario, count))
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestTestCommandNonExistentPath(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario path not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	output, err := execute(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, output, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	output, err := execute(NewTestCommand(&RootOptions{Format: "json"}), t.TempDir())
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &response))
	assert.Equal(t, "ok", response.Status)
}

func TestTestCommandPassingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "pair", 2)

	output, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, output, "✓ pair")
	assert.Contains(t, output, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, output, "✓ All scenarios passed")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "pair", 3)

	output, err := execute(NewTestCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "✗ pair")
	assert.Contains(t, output, "Expected: 3 elements")
	assert.Contains(t, output, "Actual: 2 elements")
}

func TestTestCommandFailingScenarioJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "good", 2)
	writeScenario(t, dir, "bad", 5)

	output, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: broken\nunknown: 1\n"), 0644))

	output, err := execute(NewTestCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Contains(t, output, "✗ broken.yaml")
	assert.Contains(t, output, "failed to load scenario")
}

func TestTestCommandGoldenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "pair", 2)

	output, err := execute(NewTestCommand(&RootOptions{Format: "text"}), path, "--update")
	require.NoError(t, err)
	assert.Contains(t, output, "✓ pair (golden updated)")

	goldenPath := filepath.Join(dir, "golden", "pair.golden")
	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario": "pair"`)
	assert.Contains(t, string(golden), `"detail": "a -> ab"`)

	_, err = execute(NewTestCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}\n"), 0644))
	output, err = execute(NewTestCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Contains(t, output, "trace does not match golden file")
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	dir := filepath.Join("..", "harness", "testdata")

	output, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err, output)
	assert.Contains(t, output, "✓ social")
	assert.Contains(t, output, "✓ forest")
}

func TestTestHelpText(t *testing.T) {
	output, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "--help")
	require.NoError(t, err)

	assert.Contains(t, output, "scenarios")
	assert.Contains(t, output, "--update")
	assert.Contains(t, output, "--filter")
	assert.Contains(t, output, "golden")
}

func TestFindScenarioFiles(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test1.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test2.yml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "ignore.txt"), []byte(""), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "golden", "skip.yaml"), []byte(""), 0644))

	files, err := findScenarioFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFindScenarioFilesWithFilter(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "social-love.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "social-like.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "forest.yaml"), []byte(""), 0644))

	files, err := findScenarioFiles(tmpDir, "social-*")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = findScenarioFiles(tmpDir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("scenarios", "golden", "social.golden"),
		goldenFilePath(filepath.Join("scenarios", "social.yaml")))
}
