package layout

import (
	"database/sql"
	"fmt"
	"strings"

	glerr "github.com/roach88/graphlite/pkg/errors"
	"github.com/roach88/graphlite/schema"
)

// Scanner is the part of *sql.Row and *sql.Rows used for decoding.
type Scanner interface {
	Scan(dest ...any) error
}

// Columns returns the value columns of a kind, in storage order.
func Columns(k schema.Kind) []string {
	if k == schema.Geo {
		return geoColumns
	}
	return []string{"value"}
}

// Encode returns the column arguments for a normalized value, aligned with
// Columns. A nil value encodes as NULL in every column.
func Encode(t schema.FieldType, value any) ([]any, error) {
	if value == nil {
		if !t.Optional {
			return nil, glerr.New(glerr.CodeStoreValueEncodeInvalid, "cannot store null in a required field")
		}
		return make([]any, len(Columns(t.Kind))), nil
	}
	v, err := schema.NormalizeValue(t, value)
	if err != nil {
		return nil, glerr.Wrap(err, glerr.CodeStoreValueEncodeInvalid, "cannot encode field value")
	}
	if g, ok := v.(schema.GeoBounds); ok {
		return []any{g.MinLat, g.MaxLat, g.MinLon, g.MaxLon}, nil
	}
	return []any{v}, nil
}

// Row returns the column map inserted into a value table for one element.
func Row(t schema.FieldType, elementID string, value any) (map[string]any, error) {
	args, err := Encode(t, value)
	if err != nil {
		return nil, err
	}
	row := map[string]any{"elementId": elementID}
	for i, c := range Columns(t.Kind) {
		row[c] = args[i]
	}
	return row, nil
}

// SelectSQL reads the value of one element from a field's value table.
func SelectSQL(fieldID string, k schema.Kind) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE elementId = ?",
		strings.Join(Columns(k), ", "), Tables(fieldID).Value)
}

// Decode scans one row produced by SelectSQL into the kind's Go type.
// NULL decodes as nil.
func Decode(k schema.Kind, row Scanner) (any, error) {
	var (
		v   any
		err error
	)
	switch k {
	case schema.Blob:
		var b []byte
		if err = row.Scan(&b); err == nil && b != nil {
			v = b
		}
	case schema.LongInt:
		var n sql.NullInt64
		if err = row.Scan(&n); err == nil && n.Valid {
			v = n.Int64
		}
	case schema.DoubleFloat:
		var f sql.NullFloat64
		if err = row.Scan(&f); err == nil && f.Valid {
			v = f.Float64
		}
	case schema.Text, schema.TextFullText:
		var s sql.NullString
		if err = row.Scan(&s); err == nil && s.Valid {
			v = s.String
		}
	case schema.Geo:
		var minLat, maxLat, minLon, maxLon sql.NullFloat64
		err = row.Scan(&minLat, &maxLat, &minLon, &maxLon)
		if err == nil && minLat.Valid && maxLat.Valid && minLon.Valid && maxLon.Valid {
			v = schema.GeoBounds{
				MinLat: minLat.Float64, MaxLat: maxLat.Float64,
				MinLon: minLon.Float64, MaxLon: maxLon.Float64,
			}
		}
	default:
		return nil, glerr.New(glerr.CodeStoreValueDecodeInvalid, fmt.Sprintf("cannot decode kind %s", k))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s value: %w", k, err)
	}
	return v, nil
}
