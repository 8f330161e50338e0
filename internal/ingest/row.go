// ABOUTME: Typed view of one parsed CSV data row.
// ABOUTME: Maps each recognized telemetry column to its optional raw value.
package ingest

import "strings"

// Column is a recognized telemetry CSV column.
type Column string

const (
	ColTimestamp Column = "timestamp"
	ColAccelX    Column = "accel_x"
	ColAccelY    Column = "accel_y"
	ColAccelZ    Column = "accel_z"
	ColSpeed     Column = "speed_kmph"
	ColLongitude Column = "longitude"
	ColLatitude  Column = "latitude"
	ColAltitude  Column = "altitude"
)

// Columns lists the recognized columns in export order.
var Columns = []Column{
	ColTimestamp,
	ColAccelX, ColAccelY, ColAccelZ,
	ColSpeed,
	ColLongitude, ColLatitude,
	ColAltitude,
}

// LookupColumn matches a header name to a recognized column.
// Names are trimmed and compared case-insensitively.
func LookupColumn(name string) (Column, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range Columns {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

// nullTokens are cell values read as missing.
var nullTokens = map[string]struct{}{
	"":         {},
	"NA":       {},
	"N/A":      {},
	"n/a":      {},
	"NaN":      {},
	"nan":      {},
	"-NaN":     {},
	"-nan":     {},
	"NULL":     {},
	"null":     {},
	"None":     {},
	"#N/A":     {},
	"<NA>":     {},
	"#NA":      {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"#N/A N/A": {},
}

// IsNull reports whether a raw cell value means "no value".
func IsNull(raw string) bool {
	_, ok := nullTokens[strings.TrimSpace(raw)]
	return ok
}

// Row is one data row. Columns absent from the file, or cells past the end
// of a short row, are not present in the map.
type Row struct {
	// Number is the 1-based data row number (the header is not counted).
	Number int
	values map[Column]string
}

// NewRow builds a Row from explicit column values.
func NewRow(number int, values map[Column]string) Row {
	if values == nil {
		values = map[Column]string{}
	}
	return Row{Number: number, values: values}
}

// Raw returns the cell for c and whether it exists at all.
func (r Row) Raw(c Column) (string, bool) {
	v, ok := r.values[c]
	return v, ok
}

// Value returns the trimmed cell for c, or false when absent or null.
func (r Row) Value(c Column) (string, bool) {
	v, ok := r.values[c]
	if !ok || IsNull(v) {
		return "", false
	}
	return strings.TrimSpace(v), true
}
