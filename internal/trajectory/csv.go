// ABOUTME: CSV rendering of enriched telemetry for download and export.
// ABOUTME: Null cells are empty; floats use the shortest exact form.
package trajectory

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/harperreed/rocketry/internal/models"
)

// CSVHeader is the export column order.
var CSVHeader = []string{
	"timestamp", "accel_x", "accel_y", "accel_z", "speed_kmph",
	"longitude", "latitude", "altitude",
	"distancia", "altura_lancamento",
}

// WriteCSV writes records with a header row. An empty slice writes nothing.
func WriteCSV(w io.Writer, records []models.EnrichedRecord) error {
	if len(records) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(CSVHeader))
	for i := range records {
		r := &records[i]
		row[0] = str(r.Timestamp)
		row[1] = num(r.AccelX)
		row[2] = num(r.AccelY)
		row[3] = num(r.AccelZ)
		row[4] = num(r.SpeedKmph)
		row[5] = num(r.Longitude)
		row[6] = num(r.Latitude)
		row[7] = num(r.Altitude)
		row[8] = formatFloat(r.Distance)
		row[9] = num(r.LaunchHeight)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func num(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
