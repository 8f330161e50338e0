// ABOUTME: Experiment model for a single water-rocket launch test.
// ABOUTME: Holds launch metadata and the calendar Date type used on the wire.
package models

import (
	"fmt"
	"time"
)

// DateLayout is the storage and JSON layout for experiment dates.
const DateLayout = "2006-01-02"

// FormDateLayout is the strict dd/mm/yyyy layout accepted from clients.
const FormDateLayout = "02/01/2006"

// Date is a calendar date without a time component.
type Date struct {
	time.Time
}

// NewDate returns the given calendar day at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseFormDate parses a strict dd/mm/yyyy string.
func ParseFormDate(s string) (Date, error) {
	t, err := time.Parse(FormDateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: use dd/mm/yyyy", s)
	}
	return Date{t}, nil
}

// ParseDate parses the storage layout (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

// String returns the date in storage layout.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("date must be a JSON string, got %s", b)
	}
	parsed, err := ParseDate(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML encodes the date as "YYYY-MM-DD".
func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// MarshalText shadows time.Time's RFC 3339 text form.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses the storage layout.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Experiment represents one physical rocket launch test.
type Experiment struct {
	ID             int64   `json:"id" yaml:"id"`
	Name           string  `json:"nome" yaml:"nome"`
	TargetDistance int     `json:"distancia_alvo" yaml:"distancia_alvo"`
	Date           Date    `json:"data" yaml:"data"`
	PressureBar    float64 `json:"pressao_bar" yaml:"pressao_bar"`
	WaterVolume    float64 `json:"volume_agua" yaml:"volume_agua"`
	RocketMass     float64 `json:"massa_total_foguete" yaml:"massa_total_foguete"`
}

// NewExperiment creates an Experiment that has not been persisted yet.
func NewExperiment(name string, targetDistance int, date Date, pressureBar, waterVolume, rocketMass float64) *Experiment {
	return &Experiment{
		Name:           name,
		TargetDistance: targetDistance,
		Date:           date,
		PressureBar:    pressureBar,
		WaterVolume:    waterVolume,
		RocketMass:     rocketMass,
	}
}
