// ABOUTME: Telemetry batch insert and ordered read for SQLite storage.
// ABOUTME: Batches are inserted in one transaction; reads sort by timestamp then storage order.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/harperreed/rocketry/internal/models"
)

// InsertTelemetryBatch inserts all records in a single transaction.
// Either every record is stored or none are. Empty input is a no-op.
// Record IDs are filled in only once the transaction commits.
func (s store) InsertTelemetryBatch(ctx context.Context, records []models.TelemetryRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.q.BeginTx(ctx, nil)
	if err != nil {
		return 0, wrapErr("insert telemetry batch", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO telemetry (experiment_id, timestamp, accel_x, accel_y, accel_z, speed_kmph, longitude, latitude, altitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, wrapErr("insert telemetry batch", err)
	}
	defer stmt.Close()

	ids := make([]int64, len(records))
	for i := range records {
		r := &records[i]
		if r.ExperimentID == 0 {
			return 0, wrapErr("insert telemetry batch", fmt.Errorf("record %d has no experiment", i))
		}
		result, err := stmt.ExecContext(ctx,
			r.ExperimentID,
			r.Timestamp,
			r.AccelX, r.AccelY, r.AccelZ,
			r.SpeedKmph,
			r.Longitude,
			r.Latitude,
			r.Altitude,
		)
		if err != nil {
			return 0, wrapErr("insert telemetry batch", err)
		}
		if id, err := result.LastInsertId(); err == nil {
			ids[i] = id
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, wrapErr("insert telemetry batch", err)
	}
	for i, id := range ids {
		records[i].ID = id
	}

	return len(records), nil
}

// listTelemetry returns an experiment's records ordered by timestamp, ties by insertion.
// Rows come back in id order and are then stably sorted by timestampLess.
func (s store) listTelemetry(ctx context.Context, experimentID int64) ([]models.TelemetryRecord, error) {
	query := `
		SELECT id, experiment_id, timestamp, accel_x, accel_y, accel_z, speed_kmph, longitude, latitude, altitude
		FROM telemetry
		WHERE experiment_id = ?
		ORDER BY id ASC
	`
	rows, err := s.q.QueryContext(ctx, query, experimentID)
	if err != nil {
		return nil, wrapErr("list telemetry", err)
	}
	defer rows.Close()

	records := []models.TelemetryRecord{}
	for rows.Next() {
		var r models.TelemetryRecord
		var ts sql.NullString
		var ax, ay, az, speed, lon, lat, alt sql.NullFloat64

		if err := rows.Scan(&r.ID, &r.ExperimentID, &ts, &ax, &ay, &az, &speed, &lon, &lat, &alt); err != nil {
			return nil, wrapErr("scan telemetry", err)
		}

		if ts.Valid {
			r.Timestamp = &ts.String
		}
		r.AccelX = nullFloat(ax)
		r.AccelY = nullFloat(ay)
		r.AccelZ = nullFloat(az)
		r.SpeedKmph = nullFloat(speed)
		r.Longitude = nullFloat(lon)
		r.Latitude = nullFloat(lat)
		r.Altitude = nullFloat(alt)

		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list telemetry", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return timestampLess(records[i].Timestamp, records[j].Timestamp)
	})

	return records, nil
}

// timestampLess orders null timestamps first, then numeric ones by value,
// then everything else as text. Numeric timestamps such as 8, 9, 10 would
// otherwise sort as 10, 8, 9.
func timestampLess(a, b *string) bool {
	ka, kb := timestampKey(a), timestampKey(b)
	if ka.class != kb.class {
		return ka.class < kb.class
	}
	switch ka.class {
	case tsNumber:
		return ka.num < kb.num
	case tsText:
		return ka.text < kb.text
	}
	return false
}

const (
	tsNull = iota
	tsNumber
	tsText
)

type tsKey struct {
	class int
	num   float64
	text  string
}

func timestampKey(ts *string) tsKey {
	if ts == nil {
		return tsKey{class: tsNull}
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(*ts), 64); err == nil && !math.IsNaN(v) {
		return tsKey{class: tsNumber, num: v}
	}
	return tsKey{class: tsText, text: *ts}
}

func nullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
