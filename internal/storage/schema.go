// ABOUTME: SQLite schema definition and initialization.
// ABOUTME: Defines experiments and telemetry tables with cascading delete.
package storage

import "context"

// initSchema creates the tables if they do not exist.
func (d *DB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS experiments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL CHECK (length(name) > 0),
		target_distance INTEGER NOT NULL,
		date TEXT NOT NULL,
		pressure_bar REAL NOT NULL CHECK (pressure_bar > 0),
		water_volume REAL NOT NULL CHECK (water_volume > 0),
		rocket_mass REAL NOT NULL CHECK (rocket_mass > 0)
	);

	CREATE TABLE IF NOT EXISTS telemetry (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		experiment_id INTEGER NOT NULL,
		timestamp TEXT,
		accel_x REAL,
		accel_y REAL,
		accel_z REAL,
		speed_kmph REAL,
		longitude REAL,
		latitude REAL,
		altitude REAL,
		FOREIGN KEY (experiment_id) REFERENCES experiments(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_telemetry_experiment_ts ON telemetry(experiment_id, timestamp, id);
	`

	_, err := d.db.ExecContext(ctx, schema)
	return err
}
