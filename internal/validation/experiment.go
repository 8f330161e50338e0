// ABOUTME: Raw experiment metadata as submitted by HTTP forms and CLI flags.
// ABOUTME: Validates every field before converting to a models.Experiment.
package validation

import (
	"strconv"
	"strings"

	"github.com/harperreed/rocketry/internal/models"
)

// ExperimentInput holds unparsed experiment fields.
type ExperimentInput struct {
	Name           string `form:"nomeExperimento" validate:"required"`
	TargetDistance string `form:"distanciaAlvo" validate:"required,number"`
	Date           string `form:"dataExperimento" validate:"required,ddmmyyyy"`
	PressureBar    string `form:"pressaoBar" validate:"required,posdecimal"`
	WaterVolume    string `form:"volumeAgua" validate:"required,posdecimal"`
	RocketMass     string `form:"massaTotalFoguete" validate:"required,posdecimal"`
}

// Experiment validates in and returns the parsed experiment.
// Any failure is an *Error naming the offending fields.
func (in ExperimentInput) Experiment() (*models.Experiment, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.TargetDistance = strings.TrimSpace(in.TargetDistance)
	in.Date = strings.TrimSpace(in.Date)

	if err := Struct(in); err != nil {
		return nil, err
	}

	target, err := strconv.Atoi(in.TargetDistance)
	if err != nil {
		return nil, NewError("distanciaAlvo", "distanciaAlvo is out of range")
	}
	date, err := models.ParseFormDate(in.Date)
	if err != nil {
		return nil, NewError("dataExperimento", err.Error())
	}

	// posdecimal already guaranteed these parse
	pressure, _ := strconv.ParseFloat(strings.TrimSpace(in.PressureBar), 64)
	water, _ := strconv.ParseFloat(strings.TrimSpace(in.WaterVolume), 64)
	mass, _ := strconv.ParseFloat(strings.TrimSpace(in.RocketMass), 64)

	return models.NewExperiment(in.Name, target, date, pressure, water, mass), nil
}
