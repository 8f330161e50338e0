// ABOUTME: TelemetryRecord and EnrichedRecord models for flight samples.
// ABOUTME: Nullable sensor columns are pointers; enriched fields are derived on read.
package models

// TelemetryRecord is one time-sampled observation owned by an Experiment.
type TelemetryRecord struct {
	ID           int64    `json:"-" yaml:"-"`
	ExperimentID int64    `json:"-" yaml:"-"`
	Timestamp    *string  `json:"timestamp" yaml:"timestamp"`
	AccelX       *float64 `json:"accel_x" yaml:"accel_x"`
	AccelY       *float64 `json:"accel_y" yaml:"accel_y"`
	AccelZ       *float64 `json:"accel_z" yaml:"accel_z"`
	SpeedKmph    *float64 `json:"speed_kmph" yaml:"speed_kmph"`
	Longitude    *float64 `json:"longitude" yaml:"longitude"`
	Latitude     *float64 `json:"latitude" yaml:"latitude"`
	Altitude     *float64 `json:"altitude" yaml:"altitude"`
}

// HasFix reports whether the record carries both latitude and longitude.
func (r *TelemetryRecord) HasFix() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// EnrichedRecord is a TelemetryRecord plus trajectory metrics.
// It is produced on read and never stored.
type EnrichedRecord struct {
	TelemetryRecord `yaml:",inline"`

	// Distance is the cumulative ground distance in meters from the first record.
	Distance float64 `json:"distancia" yaml:"distancia"`

	// LaunchHeight is the altitude relative to the first record. Nil when the
	// record itself has no altitude.
	LaunchHeight *float64 `json:"altura_lancamento" yaml:"altura_lancamento"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}
