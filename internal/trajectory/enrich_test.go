// ABOUTME: Tests for trajectory enrichment, summaries and CSV export.
// ABOUTME: Includes an export-then-reimport round trip through the ingest parser.
package trajectory

import (
	"bytes"
	"strings"
	"testing"

	"github.com/harperreed/rocketry/internal/ingest"
	"github.com/harperreed/rocketry/internal/models"
)

func rec(ts string, lat, lon, alt *float64) models.TelemetryRecord {
	return models.TelemetryRecord{Timestamp: models.String(ts), Latitude: lat, Longitude: lon, Altitude: alt}
}

func f(v float64) *float64 { return models.Float(v) }

func TestEnrichEmpty(t *testing.T) {
	got := Enrich(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Enrich(nil) = %v, want empty slice", got)
	}
}

func TestEnrichSingleRecord(t *testing.T) {
	got := Enrich([]models.TelemetryRecord{rec("t0", f(-23.5), f(-46.6), f(760))})

	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].Distance != 0 {
		t.Errorf("distance = %v, want 0", got[0].Distance)
	}
	if got[0].LaunchHeight == nil || *got[0].LaunchHeight != 0 {
		t.Errorf("height = %v, want 0", got[0].LaunchHeight)
	}
}

func TestEnrichMeridianStrictlyIncreasing(t *testing.T) {
	records := []models.TelemetryRecord{
		rec("t0", f(0), f(0), f(100)),
		rec("t1", f(0.001), f(0), f(110)),
		rec("t2", f(0.002), f(0), f(105.555)),
	}

	got := Enrich(records)

	if !(got[0].Distance < got[1].Distance && got[1].Distance < got[2].Distance) {
		t.Errorf("distances not strictly increasing: %v %v %v", got[0].Distance, got[1].Distance, got[2].Distance)
	}
	// 0.001 degree of latitude is about 111.19 m
	if got[1].Distance < 111 || got[1].Distance > 111.4 {
		t.Errorf("segment distance = %v, want about 111.19", got[1].Distance)
	}
	if *got[1].LaunchHeight != 10 {
		t.Errorf("height[1] = %v, want 10", *got[1].LaunchHeight)
	}
	if *got[2].LaunchHeight != 5.56 {
		t.Errorf("height[2] = %v, want 5.56", *got[2].LaunchHeight)
	}
}

func TestEnrichMissingCoordinatesContributeZero(t *testing.T) {
	records := []models.TelemetryRecord{
		rec("t0", f(0), f(0), f(0)),
		rec("t1", nil, f(0), f(1)),
		rec("t2", f(0.001), f(0), f(2)),
		rec("t3", f(0.002), f(0), f(3)),
	}

	got := Enrich(records)

	if got[1].Distance != 0 || got[2].Distance != 0 {
		t.Errorf("segments touching a missing fix should add 0, got %v and %v", got[1].Distance, got[2].Distance)
	}
	if got[3].Distance <= 0 {
		t.Errorf("segment between two fixes should add distance, got %v", got[3].Distance)
	}
}

func TestEnrichNullAltitude(t *testing.T) {
	records := []models.TelemetryRecord{
		rec("t0", nil, nil, nil),
		rec("t1", nil, nil, f(12.345)),
		rec("t2", nil, nil, nil),
	}

	got := Enrich(records)

	if *got[0].LaunchHeight != 0 {
		t.Errorf("first height = %v, want 0", *got[0].LaunchHeight)
	}
	if *got[1].LaunchHeight != 12.35 {
		t.Errorf("height with null reference = %v, want 12.35", *got[1].LaunchHeight)
	}
	if got[2].LaunchHeight != nil {
		t.Errorf("null altitude should give null height, got %v", *got[2].LaunchHeight)
	}
}

func TestEnrichDoesNotMutateInput(t *testing.T) {
	records := []models.TelemetryRecord{rec("t0", f(1), f(1), f(1)), rec("t1", f(2), f(2), f(2))}
	_ = Enrich(records)
	if *records[1].Altitude != 2 {
		t.Error("input record modified")
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize(Enrich([]models.TelemetryRecord{
		rec("t0", f(0), f(0), f(100)),
		rec("t1", f(0.001), f(0), f(140)),
		rec("t2", nil, nil, f(120)),
	}))

	if got.Records != 3 {
		t.Errorf("records = %d, want 3", got.Records)
	}
	if got.FixedRecords != 2 {
		t.Errorf("fixed = %d, want 2", got.FixedRecords)
	}
	if got.MaxHeight == nil || *got.MaxHeight != 40 {
		t.Errorf("max height = %v, want 40", got.MaxHeight)
	}
	if got.TotalDistance < 111 {
		t.Errorf("total distance = %v", got.TotalDistance)
	}

	if empty := Summarize(nil); empty.Records != 0 || empty.MaxHeight != nil {
		t.Errorf("empty summary = %+v", empty)
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected empty body, got %q", buf.String())
	}
}

func TestWriteCSVFormat(t *testing.T) {
	records := Enrich([]models.TelemetryRecord{
		{Timestamp: models.String("t0"), AccelZ: f(9.81), Latitude: f(-23.5), Longitude: f(-46.6), Altitude: f(1000000)},
		{Timestamp: models.String("t1, with comma")},
	})

	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), buf.String())
	}
	if lines[0] != strings.Join(CSVHeader, ",") {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "t0,,,9.81,,-46.6,-23.5,1000000,0,0" {
		t.Errorf("row 1 = %q", lines[1])
	}
	if lines[2] != `"t1, with comma",,,,,,,,0,` {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestCSVRoundTrip(t *testing.T) {
	original := []models.TelemetryRecord{
		{Timestamp: models.String("10:00:00"), AccelX: f(0.12), AccelY: f(-0.5), AccelZ: f(9.8), SpeedKmph: f(0), Longitude: f(-46.6333), Latitude: f(-23.5505), Altitude: f(760.25)},
		{Timestamp: models.String("10:00:01"), SpeedKmph: f(33.3), Longitude: f(-46.6334), Latitude: f(-23.5507)},
		{Timestamp: nil, Altitude: f(771)},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, Enrich(original)); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	rows, err := ingest.ParseRows(buf.String())
	if err != nil {
		t.Fatalf("ParseRows failed: %v", err)
	}
	if len(rows) != len(original) {
		t.Fatalf("reimported %d rows, want %d", len(rows), len(original))
	}

	for i, row := range rows {
		got, err := ingest.BuildRecord(row, 0)
		if err != nil {
			t.Fatalf("row %d rejected on reimport: %v", i, err)
		}
		want := original[i]
		if !eqStr(got.Timestamp, want.Timestamp) {
			t.Errorf("row %d timestamp: got %v want %v", i, got.Timestamp, want.Timestamp)
		}
		pairs := [][2]*float64{
			{got.AccelX, want.AccelX}, {got.AccelY, want.AccelY}, {got.AccelZ, want.AccelZ},
			{got.SpeedKmph, want.SpeedKmph}, {got.Longitude, want.Longitude},
			{got.Latitude, want.Latitude}, {got.Altitude, want.Altitude},
		}
		for j, p := range pairs {
			if !eqFloat(p[0], p[1]) {
				t.Errorf("row %d field %d: got %v want %v", i, j, p[0], p[1])
			}
		}
	}
}

func eqStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
