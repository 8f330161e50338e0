// ABOUTME: Snapshot export and import for experiments and their telemetry.
// ABOUTME: Supports JSON and YAML snapshots plus copying data between databases.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/harperreed/rocketry/internal/models"
	"gopkg.in/yaml.v3"
)

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion = "1.0"

// Snapshot represents the full export format for rocketry data.
type Snapshot struct {
	Version     string               `json:"version" yaml:"version"`
	ExportedAt  time.Time            `json:"exported_at" yaml:"exported_at"`
	Tool        string               `json:"tool" yaml:"tool"`
	Experiments []ExperimentSnapshot `json:"experiments" yaml:"experiments"`
}

// ExperimentSnapshot is one experiment with its raw telemetry.
type ExperimentSnapshot struct {
	Experiment *models.Experiment       `json:"experiment" yaml:"experiment"`
	Telemetry  []models.TelemetryRecord `json:"telemetry" yaml:"telemetry"`
}

// Dump reads every experiment and its telemetry from repo.
func Dump(ctx context.Context, repo Repository) (*Snapshot, error) {
	experiments, err := repo.ListExperiments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}

	snap := &Snapshot{
		Version:     SnapshotVersion,
		ExportedAt:  time.Now().UTC(),
		Tool:        "rocketry",
		Experiments: make([]ExperimentSnapshot, 0, len(experiments)),
	}

	for _, e := range experiments {
		exp, records, err := repo.GetExperiment(ctx, e.ID)
		if err != nil {
			return nil, fmt.Errorf("get experiment %d: %w", e.ID, err)
		}
		snap.Experiments = append(snap.Experiments, ExperimentSnapshot{
			Experiment: exp,
			Telemetry:  records,
		})
	}

	return snap, nil
}

// Restore writes every experiment in snap into repo. Experiments receive
// new IDs; the returned map goes from snapshot ID to restored ID.
func Restore(ctx context.Context, repo Repository, snap *Snapshot) (map[int64]int64, error) {
	if snap == nil {
		return nil, fmt.Errorf("restore: nil snapshot")
	}

	ids := make(map[int64]int64, len(snap.Experiments))
	for _, es := range snap.Experiments {
		if es.Experiment == nil {
			continue
		}
		oldID := es.Experiment.ID
		e := *es.Experiment

		newID, err := repo.CreateExperiment(ctx, &e)
		if err != nil {
			return ids, fmt.Errorf("import experiment %q: %w", e.Name, err)
		}
		ids[oldID] = newID

		records := make([]models.TelemetryRecord, len(es.Telemetry))
		for i, r := range es.Telemetry {
			r.ID = 0
			r.ExperimentID = newID
			records[i] = r
		}
		if _, err := repo.InsertTelemetryBatch(ctx, records); err != nil {
			return ids, fmt.Errorf("import telemetry for %q: %w", e.Name, err)
		}
	}

	return ids, nil
}

// CopyData copies every experiment from src into dst.
// Returns the number of experiments copied.
func CopyData(ctx context.Context, src, dst Repository) (int, error) {
	snap, err := Dump(ctx, src)
	if err != nil {
		return 0, err
	}
	ids, err := Restore(ctx, dst, snap)
	return len(ids), err
}

// MarshalIndentJSON encodes the snapshot as indented JSON.
func (s *Snapshot) MarshalIndentJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// MarshalYAMLBytes encodes the snapshot as YAML.
func (s *Snapshot) MarshalYAMLBytes() ([]byte, error) {
	return yaml.Marshal(s)
}

// ParseSnapshotJSON decodes a JSON snapshot.
func ParseSnapshotJSON(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	if snap.Version == "" {
		return nil, fmt.Errorf("unmarshal JSON: missing snapshot version")
	}
	return &snap, nil
}

// ExportJSON dumps the database as an indented JSON snapshot.
func (d *DB) ExportJSON(ctx context.Context) ([]byte, error) {
	snap, err := Dump(ctx, d)
	if err != nil {
		return nil, err
	}
	return snap.MarshalIndentJSON()
}

// ExportYAML dumps the database as a YAML snapshot.
func (d *DB) ExportYAML(ctx context.Context) ([]byte, error) {
	snap, err := Dump(ctx, d)
	if err != nil {
		return nil, err
	}
	return snap.MarshalYAMLBytes()
}

// ImportJSON restores a JSON snapshot into the database.
func (d *DB) ImportJSON(ctx context.Context, data []byte) (int, error) {
	snap, err := ParseSnapshotJSON(data)
	if err != nil {
		return 0, err
	}
	ids, err := Restore(ctx, d, snap)
	return len(ids), err
}
