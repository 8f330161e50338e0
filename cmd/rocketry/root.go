// ABOUTME: Root Cobra command for the rocketry CLI.
// ABOUTME: Loads config, sets up logging and manages the database lifecycle.
package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/harperreed/rocketry/internal/config"
	"github.com/harperreed/rocketry/internal/logging"
	"github.com/harperreed/rocketry/internal/storage"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Command annotations checked by the root pre-run hook.
const (
	skipDBAnnotation     = "rocketry/skip-db"
	skipConfigAnnotation = "rocketry/skip-config"
)

var (
	cfg *config.Config
	db  *storage.DB

	cfgFile  string
	dbPath   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:     "rocketry",
	Short:   "Water rocket experiment and flight telemetry tracker",
	Version: version,
	Long: `Rocketry records water rocket launches and the telemetry captured in flight.

Each experiment stores its launch setup (pressure, water volume, rocket mass,
target distance) together with the CSV telemetry logged by the on-board
sensors. Telemetry is enriched on read with the cumulative ground distance and
the height above the launch point.

QUICK START:

  $ rocketry import voo1.csv --name "Voo 1" --target 100 --date 15/03/2024 \
      --pressure 4.5 --water 600 --mass 350
  $ rocketry list                     # All experiments
  $ rocketry show 1                   # Metadata plus trajectory summary
  $ rocketry export 1 --format csv    # Enriched telemetry as CSV
  $ rocketry serve                    # HTTP API on :8000

BACKUP:

  $ rocketry dump -o backup.json      # Full snapshot to a file
  $ rocketry restore backup.json      # Load a snapshot as new experiments
  $ rocketry backup push              # Push every experiment to Charm KV
  $ rocketry backup restore           # Pull them back into this database

CONFIGURATION:

  Settings are read from ~/.config/rocketry/config.yaml (or --config) and
  ROCKETRY_* environment variables. Run 'rocketry config init' to write the
  defaults. DATABASE_SQLITE is honored as the database path.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}

		var err error
		if hasAnnotation(cmd, skipConfigAnnotation) {
			cfg = config.Default()
		} else if cfg, err = config.Load(cfgFile); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if dbPath != "" {
			cfg.Database.Path = dbPath
		}
		if logLevel != "" {
			if !logging.ValidLevel(logLevel) {
				return fmt.Errorf("invalid log level: %s", logLevel)
			}
			cfg.Logging.Level = logLevel
		}

		logging.Init(logging.Config{
			Level:     cfg.Logging.Level,
			Format:    cfg.Logging.Format,
			Caller:    cfg.Logging.Caller,
			Timestamp: true,
		})

		if hasAnnotation(cmd, skipDBAnnotation) {
			return nil
		}

		db, err = storage.Open(cfg.DBPath())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db != nil {
			err := db.Close()
			db = nil
			return err
		}
		return nil
	},
}

// hasAnnotation reports whether cmd or one of its parents carries key.
func hasAnnotation(cmd *cobra.Command, key string) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[key]; ok {
			return true
		}
	}
	return false
}

// parseExperimentID parses a positional experiment id.
func parseExperimentID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid experiment id: %s", s)
	}
	return id, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/rocketry/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
}
