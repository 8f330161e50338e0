// ABOUTME: Derives cumulative ground distance and launch-relative height per record.
// ABOUTME: Input must already be in timestamp order; output is never stored.
package trajectory

import (
	"math"

	"github.com/harperreed/rocketry/internal/geo"
	"github.com/harperreed/rocketry/internal/models"
)

// Enrich computes trajectory metrics for records of one experiment.
//
// The first record is the baseline: distance 0 and height 0. Its altitude
// (0 when null) is the reference for every later height. A segment where
// either endpoint lacks latitude or longitude adds nothing to the distance.
// Later records with a null altitude get a null height.
func Enrich(records []models.TelemetryRecord) []models.EnrichedRecord {
	out := make([]models.EnrichedRecord, len(records))
	if len(records) == 0 {
		return out
	}

	var refAltitude float64
	if records[0].Altitude != nil {
		refAltitude = *records[0].Altitude
	}

	var acc float64
	for i, r := range records {
		er := models.EnrichedRecord{TelemetryRecord: r}

		if i == 0 {
			er.LaunchHeight = models.Float(0)
			out[i] = er
			continue
		}

		acc += segment(&records[i-1], &records[i])
		er.Distance = round2(acc)
		if r.Altitude != nil {
			er.LaunchHeight = models.Float(round2(*r.Altitude - refAltitude))
		}
		out[i] = er
	}

	return out
}

func segment(prev, cur *models.TelemetryRecord) float64 {
	if !prev.HasFix() || !cur.HasFix() {
		return 0
	}
	return geo.Haversine(*prev.Latitude, *prev.Longitude, *cur.Latitude, *cur.Longitude)
}

// round2 rounds half away from zero to two decimals.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Summary condenses an enriched trajectory.
type Summary struct {
	Records       int      `json:"registros"`
	TotalDistance float64  `json:"distancia_total"`
	MaxHeight     *float64 `json:"altura_maxima"`
	FixedRecords  int      `json:"registros_com_gps"`
}

// Summarize reports totals for an enriched trajectory.
func Summarize(records []models.EnrichedRecord) Summary {
	s := Summary{Records: len(records)}
	if len(records) == 0 {
		return s
	}

	s.TotalDistance = records[len(records)-1].Distance
	for i := range records {
		r := &records[i]
		if r.HasFix() {
			s.FixedRecords++
		}
		if r.LaunchHeight == nil {
			continue
		}
		if s.MaxHeight == nil || *r.LaunchHeight > *s.MaxHeight {
			s.MaxHeight = models.Float(*r.LaunchHeight)
		}
	}
	return s
}
