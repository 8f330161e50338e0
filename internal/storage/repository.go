// ABOUTME: Repository interface and error types for experiment storage.
// ABOUTME: Defines the persistence contract for experiments and telemetry batches.
package storage

import (
	"context"
	"errors"

	"github.com/harperreed/rocketry/internal/models"
)

// Repository defines the storage interface for experiments and telemetry.
// This interface allows swapping implementations (e.g., for testing).
type Repository interface {
	// Experiment operations
	CreateExperiment(ctx context.Context, e *models.Experiment) (int64, error)
	GetExperiment(ctx context.Context, id int64) (*models.Experiment, []models.TelemetryRecord, error)
	ListExperiments(ctx context.Context) ([]*models.Experiment, error)
	ReplaceExperiment(ctx context.Context, id int64, e *models.Experiment) (int64, error)
	DeleteExperiment(ctx context.Context, id int64) (int64, error)

	// Telemetry operations
	InsertTelemetryBatch(ctx context.Context, records []models.TelemetryRecord) (int, error)
}

// ErrNotFound is returned when a referenced experiment does not exist.
var ErrNotFound = errors.New("not found")

// Error is a failure in the persistence layer.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapErr(op string, err error) error {
	return &Error{Op: op, Err: err}
}

// IsStorageError reports whether err came from the persistence layer.
func IsStorageError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}
