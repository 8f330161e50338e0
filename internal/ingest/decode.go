// ABOUTME: Text decoding and CSV parsing for uploaded telemetry files.
// ABOUTME: UTF-8 first with a Latin-1 fallback; header row required.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrMalformedInput means the file could not be decoded or parsed as CSV.
var ErrMalformedInput = errors.New("malformed input")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode returns data as text. Invalid UTF-8 is decoded as Latin-1.
func Decode(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, utf8BOM)), nil
	}

	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: decode latin-1: %v", ErrMalformedInput, err)
	}
	return string(text), nil
}

// ParseRows parses CSV text with a header row into Rows.
// Blank input and header-only input both yield no rows.
func ParseRows(text string) ([]Row, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformedInput, err)
	}

	// position in the record -> recognized column
	index := make(map[int]Column, len(header))
	for i, name := range header {
		if c, ok := LookupColumn(name); ok {
			if _, dup := columnIndex(index, c); !dup {
				index[i] = c
			}
		}
	}

	var rows []Row
	for n := 1; ; n++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		if len(record) > len(header) {
			return nil, fmt.Errorf("%w: row %d has %d fields, header has %d",
				ErrMalformedInput, n, len(record), len(header))
		}

		values := make(map[Column]string, len(index))
		for i, c := range index {
			if i < len(record) {
				values[c] = record[i]
			}
		}
		rows = append(rows, NewRow(n, values))
	}

	return rows, nil
}

func columnIndex(index map[int]Column, c Column) (int, bool) {
	for i, existing := range index {
		if existing == c {
			return i, true
		}
	}
	return 0, false
}
