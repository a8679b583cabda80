package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/graphlite/schema"
)

// SchemaInfo describes a persisted schema.
type SchemaInfo struct {
	Handle  string      `json:"handle"`
	Version int         `json:"version"`
	Fields  []FieldInfo `json:"fields"`
}

type FieldInfo struct {
	Handle string `json:"handle"`
	Type   string `json:"type"`
}

// StatsInfo counts the elements of one schema.
type StatsInfo struct {
	Schema      string `json:"schema"`
	Nodes       int    `json:"nodes"`
	Edges       int    `json:"edges"`
	Connections int    `json:"connections"`
}

// ConnectionInfo is one connection of an element. Outgoing is absent for
// undirected connections.
type ConnectionInfo struct {
	Edge     string `json:"edge"`
	Node     string `json:"node"`
	Outgoing *bool  `json:"outgoing,omitempty"`
}

func dbFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "db", "", "database path (defaults to database.path)")
}

// NewSchemasCommand creates the schemas command.
func NewSchemasCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List the schemas persisted in a database",
		Long: `List every schema persisted in a database with its fields and their
stored type codes. The database is opened as is; nothing is migrated.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			db, err := attach(cmd.Context(), rootOpts, formatter, dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			schemas, err := db.Schemas(cmd.Context())
			if err != nil {
				return databaseError(formatter, err)
			}
			infos := make([]SchemaInfo, 0, len(schemas))
			for _, s := range schemas {
				infos = append(infos, schemaInfo(s))
			}
			return outputSchemas(formatter, infos)
		},
	}
	dbFlag(cmd, &dbPath)

	return cmd
}

func schemaInfo(s *schema.Schema) SchemaInfo {
	info := SchemaInfo{Handle: s.Handle(), Version: s.Version(), Fields: []FieldInfo{}}
	for _, f := range s.Fields() {
		info.Fields = append(info.Fields, FieldInfo{Handle: f.Handle(), Type: f.Type().Code()})
	}
	return info
}

func outputSchemas(formatter *OutputFormatter, infos []SchemaInfo) error {
	if formatter.Format == "json" {
		return formatter.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(formatter.Writer, "No schemas")
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(formatter.Writer, "%s@%d\n", info.Handle, info.Version)
		for _, f := range info.Fields {
			fmt.Fprintf(formatter.Writer, "  %s %s\n", f.Handle, f.Type)
		}
	}
	return nil
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:           "stats",
		Short:         "Count the nodes, edges and connections of each schema",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			db, err := attach(cmd.Context(), rootOpts, formatter, dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := db.Stats(cmd.Context())
			if err != nil {
				return databaseError(formatter, err)
			}
			infos := make([]StatsInfo, 0, len(stats))
			for _, st := range stats {
				infos = append(infos, StatsInfo{
					Schema:      st.Schema.String(),
					Nodes:       st.Nodes,
					Edges:       st.Edges,
					Connections: st.Connections,
				})
			}
			return outputStats(formatter, infos)
		},
	}
	dbFlag(cmd, &dbPath)

	return cmd
}

func outputStats(formatter *OutputFormatter, infos []StatsInfo) error {
	if formatter.Format == "json" {
		return formatter.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(formatter.Writer, "No schemas")
		return nil
	}
	width := 0
	for _, info := range infos {
		width = max(width, len(info.Schema))
	}
	for _, info := range infos {
		fmt.Fprintf(formatter.Writer, "%-*s  nodes=%d edges=%d connections=%d\n",
			width, info.Schema, info.Nodes, info.Edges, info.Connections)
	}
	return nil
}

// NewConnectionsCommand creates the connections command.
func NewConnectionsCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "connections <handle>",
		Short: "List the connections of a node or edge",
		Long: `List the connections of a node or an edge, ordered by edge handle and
then node handle. Each line reads from the node's side: "a -> ab" when
the node is the source of edge ab, "b <- ab" when it is the target and
"b -- ab" for an undirected connection.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			handle := strings.TrimSpace(args[0])
			if handle == "" {
				return formatter.Fail(ExitCommandError, ErrCodeGeneric, "handle must not be empty")
			}

			db, err := attach(cmd.Context(), rootOpts, formatter, dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			conns, err := db.GetConnections(cmd.Context(), handle)
			if err != nil {
				return databaseError(formatter, err)
			}
			var infos []ConnectionInfo
			var lines []string
			for c := range conns {
				infos = append(infos, ConnectionInfo{Edge: c.EdgeHandle, Node: c.NodeHandle, Outgoing: c.Outgoing})
				lines = append(lines, c.String())
			}

			if formatter.Format == "json" {
				if infos == nil {
					infos = []ConnectionInfo{}
				}
				return formatter.Success(infos)
			}
			if len(lines) == 0 {
				fmt.Fprintf(formatter.Writer, "No connections for %s\n", handle)
				return nil
			}
			for _, line := range lines {
				fmt.Fprintln(formatter.Writer, line)
			}
			return nil
		},
	}
	dbFlag(cmd, &dbPath)

	return cmd
}
