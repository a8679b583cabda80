// Package layout maps schema fields onto physical SQLite tables.
//
// Every persisted field owns one value table keyed by element id. The
// table name is derived from the field's row id by one function, Tables,
// shared by the migration engine (which creates and drops tables) and the
// query compiler (which references them), so the two can never disagree.
//
// Value table shapes by kind:
//
//	blb          value BLOB
//	lng/dbl/txt  value INTEGER|REAL|TEXT, indexed
//	fts          value TEXT, indexed, plus an FTS4 table linked by content=
//	geo          minLat/maxLat/minLon/maxLon REAL, indexed, plus an R-tree
//
// NOT NULL is added for required fields. Companion tables are kept current
// by triggers that mirror the value table's integer row id.
package layout

import "regexp"

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Names holds every identifier derived from one field id.
type Names struct {
	Value string // value table
	Index string // index on the value column(s)
	FTS   string // full-text companion (fts fields only)
	RTree string // spatial companion (geo fields only)
}

// Sanitize strips every character outside [a-zA-Z0-9].
func Sanitize(id string) string {
	return unsafeChars.ReplaceAllString(id, "")
}

// Tables derives the table names for a field id.
func Tables(fieldID string) Names {
	safe := Sanitize(fieldID)
	return Names{
		Value: "Field_" + safe,
		Index: "FieldIndex_" + safe,
		FTS:   "FieldFts_" + safe,
		RTree: "FieldGeo_" + safe + "_rtree",
	}
}
