// ABOUTME: Pushes experiment snapshots to Charm KV and restores them locally.
// ABOUTME: One key per experiment plus a manifest describing the last push.
package backup

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/harperreed/rocketry/internal/logging"
	"github.com/harperreed/rocketry/internal/storage"
)

const (
	ExperimentPrefix = "experiment:"
	ManifestKey      = "manifest"
)

// Manifest records what the last push wrote.
type Manifest struct {
	PushID      string    `json:"push_id"`
	PushedAt    time.Time `json:"pushed_at"`
	Version     string    `json:"version"`
	Experiments int       `json:"experiments"`
	Records     int       `json:"records"`
}

// Status describes the backup store as seen locally.
type Status struct {
	ReadOnly    bool
	Experiments int
	Manifest    *Manifest
}

// ExperimentKey is the KV key for the experiment with the given local id.
func ExperimentKey(id int64) string {
	return ExperimentPrefix + strconv.FormatInt(id, 10)
}

// parseExperimentKey returns the id encoded in key.
func parseExperimentKey(key string) (int64, bool) {
	if !strings.HasPrefix(key, ExperimentPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(key, ExperimentPrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Push writes every experiment in repo to the backup store and removes
// entries for experiments that no longer exist locally.
func (c *Client) Push(ctx context.Context, repo storage.Repository) (*Manifest, error) {
	if c.IsReadOnly() {
		return nil, ErrReadOnly
	}

	snap, err := storage.Dump(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("dump experiments: %w", err)
	}

	// one sync at the end instead of one per key
	c.SetAutoSync(false)
	defer c.SetAutoSync(true)

	keep := make(map[string]bool, len(snap.Experiments))
	m := &Manifest{
		PushID:   uuid.New().String(),
		PushedAt: snap.ExportedAt,
		Version:  snap.Version,
	}
	for _, es := range snap.Experiments {
		data, err := json.Marshal(es)
		if err != nil {
			return nil, fmt.Errorf("marshal experiment %d: %w", es.Experiment.ID, err)
		}
		key := ExperimentKey(es.Experiment.ID)
		if err := c.set(key, data); err != nil {
			return nil, fmt.Errorf("write %s: %w", key, err)
		}
		keep[key] = true
		m.Experiments++
		m.Records += len(es.Telemetry)
	}

	existing, err := c.keysWithPrefix(ExperimentPrefix)
	if err != nil {
		return nil, fmt.Errorf("list backup keys: %w", err)
	}
	for _, key := range existing {
		if keep[key] {
			continue
		}
		if err := c.delete(key); err != nil {
			return nil, fmt.Errorf("remove stale %s: %w", key, err)
		}
		logging.Ctx(ctx).Debug().Str("key", key).Msg("removed stale backup entry")
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := c.set(ManifestKey, data); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err := c.Sync(); err != nil {
		return nil, fmt.Errorf("sync backup: %w", err)
	}

	logging.Ctx(ctx).Info().
		Str("push_id", m.PushID).
		Int("experiments", m.Experiments).
		Int("records", m.Records).
		Msg("backup pushed")
	return m, nil
}

// Snapshot assembles the backed-up experiments, ordered by their original id.
func (c *Client) Snapshot(ctx context.Context) (*storage.Snapshot, error) {
	keys, err := c.keysWithPrefix(ExperimentPrefix)
	if err != nil {
		return nil, fmt.Errorf("list backup keys: %w", err)
	}

	type entry struct {
		id   int64
		snap storage.ExperimentSnapshot
	}
	entries := make([]entry, 0, len(keys))
	for _, key := range keys {
		id, ok := parseExperimentKey(key)
		if !ok {
			logging.Ctx(ctx).Warn().Str("key", key).Msg("skipping unrecognized backup key")
			continue
		}
		data, err := c.get(key)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		var es storage.ExperimentSnapshot
		if err := json.Unmarshal(data, &es); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		if es.Experiment == nil {
			return nil, fmt.Errorf("decode %s: missing experiment", key)
		}
		entries = append(entries, entry{id: id, snap: es})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	snap := &storage.Snapshot{
		Version:     storage.SnapshotVersion,
		ExportedAt:  time.Now().UTC(),
		Tool:        "rocketry",
		Experiments: make([]storage.ExperimentSnapshot, len(entries)),
	}
	for i, e := range entries {
		snap.Experiments[i] = e.snap
	}
	return snap, nil
}

// Restore pulls the backup and writes every experiment into repo as new rows.
// It returns the mapping from backed-up ids to new local ids.
func (c *Client) Restore(ctx context.Context, repo storage.Repository) (map[int64]int64, error) {
	if err := c.Sync(); err != nil {
		return nil, fmt.Errorf("sync backup: %w", err)
	}

	snap, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := storage.Restore(ctx, repo, snap)
	if err != nil {
		return nil, fmt.Errorf("restore experiments: %w", err)
	}
	return ids, nil
}

// Status reports the local view of the backup store.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	keys, err := c.keysWithPrefix(ExperimentPrefix)
	if err != nil {
		return nil, fmt.Errorf("list backup keys: %w", err)
	}

	st := &Status{ReadOnly: c.IsReadOnly(), Experiments: len(keys)}

	data, err := c.get(ManifestKey)
	if err != nil || len(data) == 0 {
		// no manifest until the first push
		return st, nil
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	st.Manifest = &m
	return st, nil
}
