// ABOUTME: CLI command for showing one experiment and its trajectory.
// ABOUTME: Prints metadata, a flight summary and optionally the enriched records.
package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/harperreed/rocketry/internal/models"
	"github.com/harperreed/rocketry/internal/trajectory"
	"github.com/spf13/cobra"
)

var showRecords int

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Aliases: []string{"get"},
	Short:   "Show an experiment with its trajectory summary",
	Long: `Show an experiment's launch setup and a summary of its flight.

The summary reports how many telemetry records exist, how many had a GPS fix,
the total ground distance covered and the peak height above the launch point.

EXAMPLES:

  rocketry show 3             # Metadata and summary
  rocketry show 3 -n 20       # Also print the first 20 enriched records
  rocketry show 3 -n -1       # Print every record`,
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

		out := cmd.OutOrStdout()
		enriched := trajectory.Enrich(records)
		summary := trajectory.Summarize(enriched)

		bold := color.New(color.Bold)
		faint := color.New(color.Faint)

		bold.Fprintf(out, "%s\n", e.Name)
		fmt.Fprintf(out, "  %s %d\n", faint.Sprint("ID:      "), e.ID)
		fmt.Fprintf(out, "  %s %s\n", faint.Sprint("Date:    "), e.Date.String())
		fmt.Fprintf(out, "  %s %d m\n", faint.Sprint("Target:  "), e.TargetDistance)
		fmt.Fprintf(out, "  %s %.2f bar\n", faint.Sprint("Pressure:"), e.PressureBar)
		fmt.Fprintf(out, "  %s %.1f ml\n", faint.Sprint("Water:   "), e.WaterVolume)
		fmt.Fprintf(out, "  %s %.1f g\n", faint.Sprint("Mass:    "), e.RocketMass)
		fmt.Fprintln(out)

		fmt.Fprintf(out, "  %s %d (%d with GPS fix)\n", faint.Sprint("Records: "), summary.Records, summary.FixedRecords)
		fmt.Fprintf(out, "  %s %.2f m\n", faint.Sprint("Distance:"), summary.TotalDistance)
		if summary.MaxHeight != nil {
			fmt.Fprintf(out, "  %s %.2f m\n", faint.Sprint("Apogee:  "), *summary.MaxHeight)
		} else {
			fmt.Fprintf(out, "  %s -\n", faint.Sprint("Apogee:  "))
		}

		if showRecords != 0 && len(enriched) > 0 {
			n := len(enriched)
			if showRecords > 0 && showRecords < n {
				n = showRecords
			}
			fmt.Fprintln(out)
			printRecords(out, enriched[:n])
		}

		return nil
	},
}

func printRecords(out io.Writer, records []models.EnrichedRecord) {
	faint := color.New(color.Faint)
	faint.Fprintf(out, "  %-12s %11s %11s %9s %9s %9s\n", "TIME", "LAT", "LON", "ALT", "DIST", "HEIGHT")
	for _, r := range records {
		fmt.Fprintf(out, "  %-12s %11s %11s %9s %9.2f %9s\n",
			truncate(strOrDash(r.Timestamp), 12),
			floatOrDash(r.Latitude, 6),
			floatOrDash(r.Longitude, 6),
			floatOrDash(r.Altitude, 1),
			r.Distance,
			floatOrDash(r.LaunchHeight, 2))
	}
}

func strOrDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func floatOrDash(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, *v)
}

func init() {
	showCmd.Flags().IntVarP(&showRecords, "records", "n", 0, "print enriched records (-1 for all)")
	rootCmd.AddCommand(showCmd)
}
