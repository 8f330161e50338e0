// ABOUTME: CLI command for creating an experiment from a telemetry CSV.
// ABOUTME: Same validation and ingestion path as the HTTP upload.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/harperreed/rocketry/internal/ingest"
	"github.com/harperreed/rocketry/internal/logging"
	"github.com/harperreed/rocketry/internal/validation"
	"github.com/spf13/cobra"
)

var (
	importName         string
	importTarget       string
	importDate         string
	importPressure     string
	importWater        string
	importMass         string
	importShowRejected int
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Create an experiment from a telemetry CSV",
	Long: `Create an experiment and load its telemetry from a CSV file.

The CSV may contain any of these columns, in any order:

  timestamp, accel_x, accel_y, accel_z, speed_kmph, longitude, latitude, altitude

Rows with non-numeric values are skipped and counted as rejected. Files may be
UTF-8 or Latin-1.

FLAGS:

  --name       Experiment name (required)
  --target     Target distance in meters, whole number (required)
  --date       Launch date, dd/mm/yyyy (required)
  --pressure   Launch pressure in bar, > 0 (required)
  --water      Water volume in ml, > 0 (required)
  --mass       Total rocket mass in g, > 0 (required)

EXAMPLES:

  rocketry import voo1.csv --name "Voo 1" --target 100 --date 15/03/2024 \
      --pressure 4.5 --water 600 --mass 350
  rocketry import voo2.csv ... --show-rejected 20`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		filename := args[0]

		in := validation.ExperimentInput{
			Name:           importName,
			TargetDistance: importTarget,
			Date:           importDate,
			PressureBar:    importPressure,
			WaterVolume:    importWater,
			RocketMass:     importMass,
		}
		e, err := in.Experiment()
		if err != nil {
			return fmt.Errorf("invalid experiment: %w", err)
		}

		file := struct {
			Name string `form:"file" validate:"csvfile"`
		}{Name: filepath.Base(filename)}
		if err := validation.Struct(file); err != nil {
			return err
		}

		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		id, err := db.CreateExperiment(ctx, e)
		if err != nil {
			return fmt.Errorf("failed to create experiment: %w", err)
		}

		res, err := ingest.NewPipeline().Ingest(ctx, db, id, data)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Int64("experiment_id", id).Msg("experiment created but csv ingestion failed")
			return fmt.Errorf("experiment %d created but telemetry import failed: %w", id, err)
		}

		color.New(color.FgGreen).Fprintf(out, "✓ Created experiment %d: %s\n", id, e.Name)
		fmt.Fprintf(out, "  %d records imported, %d rejected\n", res.Accepted, res.Rejected)

		if importShowRejected > 0 {
			faint := color.New(color.Faint)
			for i, rej := range res.Rejections {
				if i >= importShowRejected {
					break
				}
				faint.Fprintf(out, "  %s\n", rej.Error())
			}
		}

		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importName, "name", "", "experiment name")
	importCmd.Flags().StringVar(&importTarget, "target", "", "target distance in meters")
	importCmd.Flags().StringVar(&importDate, "date", "", "launch date (dd/mm/yyyy)")
	importCmd.Flags().StringVar(&importPressure, "pressure", "", "launch pressure in bar")
	importCmd.Flags().StringVar(&importWater, "water", "", "water volume in ml")
	importCmd.Flags().StringVar(&importMass, "mass", "", "total rocket mass in g")
	importCmd.Flags().IntVar(&importShowRejected, "show-rejected", 0, "print up to N rejected rows")
	rootCmd.AddCommand(importCmd)
}
