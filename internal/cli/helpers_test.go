package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const socialCUE = `package social

schema: person: {
	version: 1
	fields: {
		name: "text"
		bio:  "fulltext?"
		age:  {type: "long", optional: true}
	}
}

schema: knows: {
	version: 1
}
`

// writeSchemas writes content as the only CUE file of dir/schemas.
func writeSchemas(t *testing.T, dir, content string) string {
	t.Helper()
	schemasDir := filepath.Join(dir, "schemas")
	require.NoError(t, os.MkdirAll(schemasDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(schemasDir, "schemas.cue"), []byte(content), 0644))
	return schemasDir
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// migrated creates a database at dir/graph.db from socialCUE.
func migrated(t *testing.T, dir string) string {
	t.Helper()
	schemasDir := writeSchemas(t, dir, socialCUE)
	dbPath := filepath.Join(dir, "graph.db")
	_, err := execute(NewMigrateCommand(&RootOptions{Format: "text"}), schemasDir, "--db", dbPath)
	require.NoError(t, err)
	return dbPath
}
