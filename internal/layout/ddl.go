package layout

import (
	"fmt"
	"strings"

	glerr "github.com/roach88/graphlite/pkg/errors"
	"github.com/roach88/graphlite/schema"
)

var geoColumns = []string{"minLat", "maxLat", "minLon", "maxLon"}

// sqlType returns the column affinity used for a scalar kind.
func sqlType(k schema.Kind) (string, error) {
	switch k {
	case schema.Blob:
		return "BLOB", nil
	case schema.LongInt:
		return "INTEGER", nil
	case schema.DoubleFloat, schema.Geo:
		return "REAL", nil
	case schema.Text, schema.TextFullText:
		return "TEXT", nil
	default:
		return "", glerr.New(glerr.CodeStoreLayoutInvalid, fmt.Sprintf("no column type for kind %s", k))
	}
}

// CreateStatements returns the DDL creating the value table of a field and
// its index, companion tables and triggers, in execution order.
func CreateStatements(fieldID string, t schema.FieldType) ([]string, error) {
	n := Tables(fieldID)
	colType, err := sqlType(t.Kind)
	if err != nil {
		return nil, err
	}
	notNull := ""
	if !t.Optional {
		notNull = " NOT NULL"
	}

	var valueCols []string
	for _, c := range Columns(t.Kind) {
		valueCols = append(valueCols, fmt.Sprintf("%s %s%s", c, colType, notNull))
	}

	stmts := []string{fmt.Sprintf(
		"CREATE TABLE %s (id INTEGER PRIMARY KEY, elementId TEXT NOT NULL UNIQUE REFERENCES Element(id) ON DELETE CASCADE, %s)",
		n.Value, strings.Join(valueCols, ", "),
	)}

	switch t.Kind {
	case schema.Blob:
		// Blobs are not indexable.
	case schema.Geo:
		stmts = append(stmts,
			fmt.Sprintf("CREATE INDEX %s ON %s(%s)", n.Index, n.Value, strings.Join(geoColumns, ", ")),
			fmt.Sprintf("CREATE VIRTUAL TABLE %s USING rtree(id, minLat, maxLat, minLon, maxLon)", n.RTree),
		)
		stmts = append(stmts, rtreeTriggers(n)...)
	case schema.TextFullText:
		stmts = append(stmts,
			fmt.Sprintf("CREATE INDEX %s ON %s(value)", n.Index, n.Value),
			fmt.Sprintf(`CREATE VIRTUAL TABLE %s USING fts4(content="%s", value)`, n.FTS, n.Value),
		)
		stmts = append(stmts, ftsTriggers(n)...)
	default:
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX %s ON %s(value)", n.Index, n.Value))
	}
	return stmts, nil
}

// The external-content FTS4 table reads the old row to remove its tokens,
// so removal must happen before the row changes.
func ftsTriggers(n Names) []string {
	del := fmt.Sprintf("DELETE FROM %s WHERE docid = old.id;", n.FTS)
	ins := fmt.Sprintf("INSERT INTO %s(docid, value) VALUES (new.id, new.value);", n.FTS)
	return []string{
		fmt.Sprintf("CREATE TRIGGER %s_bu BEFORE UPDATE ON %s BEGIN %s END", n.Value, n.Value, del),
		fmt.Sprintf("CREATE TRIGGER %s_bd BEFORE DELETE ON %s BEGIN %s END", n.Value, n.Value, del),
		fmt.Sprintf("CREATE TRIGGER %s_au AFTER UPDATE ON %s BEGIN %s END", n.Value, n.Value, ins),
		fmt.Sprintf("CREATE TRIGGER %s_ai AFTER INSERT ON %s BEGIN %s END", n.Value, n.Value, ins),
	}
}

// Null bounds never reach the R-tree.
func rtreeTriggers(n Names) []string {
	del := fmt.Sprintf("DELETE FROM %s WHERE id = old.id;", n.RTree)
	ins := fmt.Sprintf(
		"INSERT INTO %s(id, minLat, maxLat, minLon, maxLon) SELECT new.id, new.minLat, new.maxLat, new.minLon, new.maxLon WHERE new.minLat IS NOT NULL;",
		n.RTree,
	)
	return []string{
		fmt.Sprintf("CREATE TRIGGER %s_ai AFTER INSERT ON %s BEGIN %s END", n.Value, n.Value, ins),
		fmt.Sprintf("CREATE TRIGGER %s_au AFTER UPDATE ON %s BEGIN %s %s END", n.Value, n.Value, del, ins),
		fmt.Sprintf("CREATE TRIGGER %s_ad AFTER DELETE ON %s BEGIN %s END", n.Value, n.Value, del),
	}
}

// DropStatements removes everything CreateStatements made. Triggers and
// the index go with the value table.
func DropStatements(fieldID string, t schema.FieldType) []string {
	n := Tables(fieldID)
	var stmts []string
	switch t.Kind {
	case schema.TextFullText:
		stmts = append(stmts, "DROP TABLE IF EXISTS "+n.FTS)
	case schema.Geo:
		stmts = append(stmts, "DROP TABLE IF EXISTS "+n.RTree)
	}
	return append(stmts, "DROP TABLE IF EXISTS "+n.Value)
}
