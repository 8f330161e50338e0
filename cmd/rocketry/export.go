// ABOUTME: CLI commands for exporting one experiment and for whole-database
// ABOUTME: snapshots (dump, restore, migrate).
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/harperreed/rocketry/internal/models"
	"github.com/harperreed/rocketry/internal/storage"
	"github.com/harperreed/rocketry/internal/trajectory"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	exportFormat string
	exportOutput string

	dumpFormat string
	dumpOutput string
)

// experimentExport is the JSON/YAML shape of a single-experiment export.
type experimentExport struct {
	Experiment *models.Experiment      `json:"experimento" yaml:"experimento"`
	Summary    trajectory.Summary      `json:"resumo" yaml:"resumo"`
	Records    []models.EnrichedRecord `json:"dados_associados" yaml:"dados_associados"`
}

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export one experiment's enriched telemetry",
	Long: `Export an experiment's telemetry with cumulative distance and launch height.

FORMATS:

  csv    Same columns as the HTTP download; re-importable with 'rocketry import'
  json   Experiment, flight summary and enriched records
  yaml   Same content as json

EXAMPLES:

  rocketry export 3                       # CSV to stdout
  rocketry export 3 -o voo3.csv           # CSV to a file
  rocketry export 3 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseExperimentID(args[0])
		if err != nil {
			return err
		}

		e, records, err := db.GetExperiment(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to get experiment: %w", err)
		}
		enriched := trajectory.Enrich(records)

		var data []byte
		switch exportFormat {
		case "csv":
			var buf bytes.Buffer
			if err := trajectory.WriteCSV(&buf, enriched); err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			data = buf.Bytes()
		case "json", "yaml":
			doc := experimentExport{
				Experiment: e,
				Summary:    trajectory.Summarize(enriched),
				Records:    enriched,
			}
			if exportFormat == "json" {
				data, err = json.MarshalIndent(doc, "", "  ")
			} else {
				data, err = yaml.Marshal(doc)
			}
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
		default:
			return fmt.Errorf("unknown format: %s (use csv, json, or yaml)", exportFormat)
		}

		return writeOutput(cmd.OutOrStdout(), exportOutput, data)
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Write a snapshot of every experiment",
	Long: `Write a snapshot of every experiment and its raw telemetry.

JSON snapshots can be loaded back with 'rocketry restore'.

EXAMPLES:

  rocketry dump -o backup.json
  rocketry dump --format yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error

		switch dumpFormat {
		case "json":
			data, err = db.ExportJSON(cmd.Context())
		case "yaml":
			data, err = db.ExportYAML(cmd.Context())
		default:
			return fmt.Errorf("unknown format: %s (use json or yaml)", dumpFormat)
		}
		if err != nil {
			return fmt.Errorf("dump failed: %w", err)
		}

		return writeOutput(cmd.OutOrStdout(), dumpOutput, data)
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <file.json>",
	Short: "Load a JSON snapshot as new experiments",
	Long: `Load every experiment in a JSON snapshot written by 'rocketry dump'.

Experiments are added with new IDs; existing data is left untouched, so
restoring the same file twice creates duplicates.

EXAMPLES:

  rocketry restore backup.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		n, err := db.ImportJSON(cmd.Context(), data)
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Restored %d experiments from %s\n", n, args[0])
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate <target.db>",
	Short: "Copy every experiment into another database file",
	Long: `Copy every experiment and its telemetry into another SQLite database.

The target is created if it does not exist. Experiments get new IDs in the
target; the source is not modified.

EXAMPLES:

  rocketry migrate /mnt/backup/rocketry.db
  rocketry --db old.db migrate new.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]
		if target == db.Path() {
			return fmt.Errorf("target is the current database: %s", target)
		}

		dst, err := storage.Open(target)
		if err != nil {
			return fmt.Errorf("failed to open target: %w", err)
		}
		defer dst.Close()

		n, err := storage.CopyData(cmd.Context(), db, dst)
		if err != nil {
			return fmt.Errorf("migrate failed after %d experiments: %w", n, err)
		}

		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Copied %d experiments to %s\n", n, target)
		return nil
	},
}

func writeOutput(out io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	color.New(color.FgGreen).Fprintf(out, "✓ Exported to %s\n", path)
	return nil
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format: csv, json, yaml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")

	dumpCmd.Flags().StringVarP(&dumpFormat, "format", "f", "json", "output format: json, yaml")
	dumpCmd.Flags().StringVarP(&dumpOutput, "output", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(migrateCmd)
}
