// ABOUTME: Experiment CRUD operations for SQLite storage.
// ABOUTME: Implements Repository methods for experiments with cascade delete.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/harperreed/rocketry/internal/models"
)

// store implements Repository over either a pooled handle or a pinned connection.
type store struct {
	q querier
}

const experimentColumns = `id, name, target_distance, date, pressure_bar, water_volume, rocket_mass`

// CreateExperiment inserts experiment metadata and returns the generated ID.
// The ID is also set on e.
func (s store) CreateExperiment(ctx context.Context, e *models.Experiment) (int64, error) {
	query := `
		INSERT INTO experiments (name, target_distance, date, pressure_bar, water_volume, rocket_mass)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.q.ExecContext(ctx, query,
		e.Name,
		e.TargetDistance,
		e.Date.String(),
		e.PressureBar,
		e.WaterVolume,
		e.RocketMass,
	)
	if err != nil {
		return 0, wrapErr("create experiment", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, wrapErr("create experiment", err)
	}
	e.ID = id
	return id, nil
}

// GetExperiment retrieves an experiment and its telemetry ordered by timestamp.
// Ties keep storage order.
func (s store) GetExperiment(ctx context.Context, id int64) (*models.Experiment, []models.TelemetryRecord, error) {
	query := `SELECT ` + experimentColumns + ` FROM experiments WHERE id = ?`
	e, err := scanExperiment(s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("experiment %d: %w", id, ErrNotFound)
		}
		return nil, nil, wrapErr("get experiment", err)
	}

	records, err := s.listTelemetry(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return e, records, nil
}

// ListExperiments returns metadata for every experiment, oldest first.
func (s store) ListExperiments(ctx context.Context) ([]*models.Experiment, error) {
	query := `SELECT ` + experimentColumns + ` FROM experiments ORDER BY id ASC`
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapErr("list experiments", err)
	}
	defer rows.Close()

	experiments := []*models.Experiment{}
	for rows.Next() {
		e, err := scanExperiment(rows)
		if err != nil {
			return nil, wrapErr("list experiments", err)
		}
		experiments = append(experiments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list experiments", err)
	}

	return experiments, nil
}

// ReplaceExperiment overwrites every mutable field of an experiment.
// Returns the number of affected rows (0 if id is absent).
func (s store) ReplaceExperiment(ctx context.Context, id int64, e *models.Experiment) (int64, error) {
	query := `
		UPDATE experiments SET
			name = ?, target_distance = ?, date = ?,
			pressure_bar = ?, water_volume = ?, rocket_mass = ?
		WHERE id = ?
	`
	result, err := s.q.ExecContext(ctx, query,
		e.Name,
		e.TargetDistance,
		e.Date.String(),
		e.PressureBar,
		e.WaterVolume,
		e.RocketMass,
		id,
	)
	if err != nil {
		return 0, wrapErr("replace experiment", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, wrapErr("replace experiment", err)
	}
	if affected > 0 {
		e.ID = id
	}
	return affected, nil
}

// DeleteExperiment removes an experiment and all its telemetry (cascade delete).
// Returns the number of affected rows (0 if id is absent).
func (s store) DeleteExperiment(ctx context.Context, id int64) (int64, error) {
	// CASCADE is enabled, so deleting the experiment deletes its telemetry
	result, err := s.q.ExecContext(ctx, "DELETE FROM experiments WHERE id = ?", id)
	if err != nil {
		return 0, wrapErr("delete experiment", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, wrapErr("delete experiment", err)
	}
	return affected, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanExperiment(row rowScanner) (*models.Experiment, error) {
	var e models.Experiment
	var date string

	err := row.Scan(&e.ID, &e.Name, &e.TargetDistance, &date, &e.PressureBar, &e.WaterVolume, &e.RocketMass)
	if err != nil {
		return nil, err
	}

	e.Date, err = models.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("scan experiment %d: %w", e.ID, err)
	}

	return &e, nil
}
