// ABOUTME: Row validation and conversion to telemetry records.
// ABOUTME: Rejections carry the row number, column and reason.
package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/harperreed/rocketry/internal/models"
)

// RowError explains why a row was rejected. It is never fatal to a batch.
type RowError struct {
	Row    int
	Column Column
	Value  string
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: column %s: %s (value %q)", e.Row, e.Column, e.Reason, e.Value)
}

// numericColumns must each be null or a finite number.
var numericColumns = []Column{
	ColLatitude, ColLongitude, ColAltitude, ColSpeed,
	ColAccelX, ColAccelY, ColAccelZ,
}

// Validate checks that a row can be stored. It returns nil or a *RowError.
func Validate(r Row) error {
	_, err := toRecord(r, 0)
	if err != nil {
		return err
	}
	return nil
}

// BuildRecord validates r and converts it into a record owned by experimentID.
func BuildRecord(r Row, experimentID int64) (models.TelemetryRecord, error) {
	rec, err := toRecord(r, experimentID)
	if err != nil {
		return models.TelemetryRecord{}, err
	}
	return rec, nil
}

func toRecord(r Row, experimentID int64) (models.TelemetryRecord, *RowError) {
	rec := models.TelemetryRecord{ExperimentID: experimentID}

	// Any non-null cell is acceptable text for the timestamp, stored untrimmed.
	if ts, ok := r.Raw(ColTimestamp); ok && !IsNull(ts) {
		rec.Timestamp = &ts
	}

	targets := map[Column]**float64{
		ColLatitude:  &rec.Latitude,
		ColLongitude: &rec.Longitude,
		ColAltitude:  &rec.Altitude,
		ColSpeed:     &rec.SpeedKmph,
		ColAccelX:    &rec.AccelX,
		ColAccelY:    &rec.AccelY,
		ColAccelZ:    &rec.AccelZ,
	}

	for _, c := range numericColumns {
		raw, ok := r.Value(c)
		if !ok {
			continue
		}
		v, reason := parseNumber(raw)
		if reason != "" {
			return rec, &RowError{Row: r.Number, Column: c, Value: raw, Reason: reason}
		}
		*targets[c] = &v
	}

	return rec, nil
}

func parseNumber(raw string) (float64, string) {
	// strconv accepts hex floats and digit separators that a CSV reader would not
	if strings.ContainsAny(raw, "xX_") {
		return 0, "not a number"
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, "not a number"
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, "not a finite number"
	}
	return v, ""
}
