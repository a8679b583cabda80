package layout

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphlite/schema"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "layout.db")+"?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE Element (id TEXT PRIMARY KEY, handle TEXT NOT NULL UNIQUE)`)
	require.NoError(t, err)
	return db
}

func createField(t *testing.T, db *sql.DB, id string, ft schema.FieldType) {
	t.Helper()
	stmts, err := CreateStatements(id, ft)
	require.NoError(t, err)
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err, s)
	}
}

func insert(t *testing.T, db *sql.DB, id string, ft schema.FieldType, elementID string, v any) {
	t.Helper()
	row, err := Row(ft, elementID, v)
	require.NoError(t, err)
	cols := append([]string{"elementId"}, Columns(ft.Kind)...)
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = row[c]
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?%s)",
		Tables(id).Value, strings.Join(cols, ", "), strings.Repeat(", ?", len(cols)-1))
	_, err = db.Exec(q, args...)
	require.NoError(t, err)
}

func TestTables(t *testing.T) {
	n := Tables("3f2a-9c_01")
	assert.Equal(t, "Field_3f2a9c01", n.Value)
	assert.Equal(t, "FieldIndex_3f2a9c01", n.Index)
	assert.Equal(t, "FieldFts_3f2a9c01", n.FTS)
	assert.Equal(t, "FieldGeo_3f2a9c01_rtree", n.RTree)
	assert.Equal(t, "aDROPTABLEx", Sanitize("a; DROP TABLE x"))
}

func TestCreateStatements_StatementCounts(t *testing.T) {
	tests := []struct {
		ft   schema.FieldType
		want int
	}{
		{schema.Required(schema.Blob), 1},
		{schema.Required(schema.LongInt), 2},
		{schema.Nullable(schema.DoubleFloat), 2},
		{schema.Required(schema.Text), 2},
		{schema.Required(schema.TextFullText), 7},
		{schema.Nullable(schema.Geo), 6},
	}
	for _, tt := range tests {
		t.Run(tt.ft.Code(), func(t *testing.T) {
			stmts, err := CreateStatements("f1", tt.ft)
			require.NoError(t, err)
			assert.Len(t, stmts, tt.want)
			if tt.ft.Optional {
				assert.NotContains(t, stmts[0], "NOT NULL,")
			}
		})
	}
}

func TestCreateStatements_RequiredIsNotNull(t *testing.T) {
	db := openTestDB(t)
	ft := schema.Required(schema.LongInt)
	createField(t, db, "n", ft)
	_, err := db.Exec(`INSERT INTO Element VALUES ('e1', 'h1')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO Field_n (elementId, value) VALUES ('e1', NULL)`)
	assert.Error(t, err)

	_, err = Encode(ft, nil)
	assert.Error(t, err)
}

func TestRoundTrip_AllKinds(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`INSERT INTO Element VALUES ('e1', 'h1')`)
	require.NoError(t, err)

	tests := []struct {
		id    string
		ft    schema.FieldType
		value any
	}{
		{"b", schema.Required(schema.Blob), []byte{0, 1, 2}},
		{"l", schema.Required(schema.LongInt), int64(42)},
		{"d", schema.Required(schema.DoubleFloat), 2.5},
		{"t", schema.Required(schema.Text), "oak"},
		{"f", schema.Required(schema.TextFullText), "John Smith"},
		{"g", schema.Required(schema.Geo), schema.MustGeoBounds(1, 2, 3, 4)},
		{"on", schema.Nullable(schema.LongInt), nil},
		{"og", schema.Nullable(schema.Geo), nil},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			createField(t, db, tt.id, tt.ft)
			insert(t, db, tt.id, tt.ft, "e1", tt.value)

			got, err := Decode(tt.ft.Kind, db.QueryRow(SelectSQL(tt.id, tt.ft.Kind), "e1"))
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestFullTextTriggers(t *testing.T) {
	db := openTestDB(t)
	ft := schema.Required(schema.TextFullText)
	createField(t, db, "n", ft)
	_, err := db.Exec(`INSERT INTO Element VALUES ('e1', 'h1'), ('e2', 'h2')`)
	require.NoError(t, err)
	insert(t, db, "n", ft, "e1", "John Smith")
	insert(t, db, "n", ft, "e2", "Jane Doe")

	count := func(q string) int {
		var n int
		require.NoError(t, db.QueryRow(`SELECT count(*) FROM FieldFts_n WHERE value MATCH ?`, q).Scan(&n))
		return n
	}
	assert.Equal(t, 1, count("smith"))
	assert.Equal(t, 0, count("oak"))

	_, err = db.Exec(`UPDATE Field_n SET value = 'John Oak' WHERE elementId = 'e1'`)
	require.NoError(t, err)
	assert.Equal(t, 0, count("smith"))
	assert.Equal(t, 1, count("oak"))

	_, err = db.Exec(`DELETE FROM Element WHERE id = 'e1'`)
	require.NoError(t, err)
	assert.Equal(t, 0, count("oak"))
	assert.Equal(t, 1, count("doe"))
}

func TestRTreeTriggers(t *testing.T) {
	db := openTestDB(t)
	ft := schema.Nullable(schema.Geo)
	createField(t, db, "g", ft)
	_, err := db.Exec(`INSERT INTO Element VALUES ('e1', 'h1'), ('e2', 'h2')`)
	require.NoError(t, err)
	insert(t, db, "g", ft, "e1", schema.MustGeoBounds(0, 1, 0, 1))
	insert(t, db, "g", ft, "e2", nil)

	rtreeRows := func() int {
		var n int
		require.NoError(t, db.QueryRow(`SELECT count(*) FROM FieldGeo_g_rtree`).Scan(&n))
		return n
	}
	assert.Equal(t, 1, rtreeRows())

	_, err = db.Exec(`UPDATE Field_g SET minLat = 5, maxLat = 6, minLon = 5, maxLon = 6 WHERE elementId = 'e2'`)
	require.NoError(t, err)
	assert.Equal(t, 2, rtreeRows())

	_, err = db.Exec(`DELETE FROM Element WHERE id = 'e1'`)
	require.NoError(t, err)
	assert.Equal(t, 1, rtreeRows())
}

func TestDropStatements(t *testing.T) {
	db := openTestDB(t)
	for id, ft := range map[string]schema.FieldType{
		"f": schema.Required(schema.TextFullText),
		"g": schema.Required(schema.Geo),
		"l": schema.Required(schema.LongInt),
	} {
		createField(t, db, id, ft)
		for _, s := range DropStatements(id, ft) {
			_, err := db.Exec(s)
			require.NoError(t, err, s)
		}
	}

	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE name LIKE 'Field%'`).Scan(&n))
	assert.Zero(t, n)
}
