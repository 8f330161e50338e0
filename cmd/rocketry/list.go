// ABOUTME: CLI command for listing experiments.
// ABOUTME: One line per experiment with its launch setup.
package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "l"},
	Short:   "List experiments",
	Long: `List every recorded experiment, oldest first.

OUTPUT FORMAT:

  Each line shows: ID  DATE  NAME  TARGET  PRESSURE  WATER  MASS

  Use the ID with show, export and delete.

EXAMPLES:

  rocketry list
  rocketry ls`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		experiments, err := db.ListExperiments(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list experiments: %w", err)
		}

		if len(experiments) == 0 {
			fmt.Fprintln(out, "No experiments found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, e := range experiments {
			fmt.Fprintf(out, "%s %s %s %4d m  %5.2f bar  %7.1f ml  %7.1f g\n",
				faint.Sprintf("%4d", e.ID),
				faint.Sprint(e.Date.String()),
				padRight(truncate(e.Name, 24), 24),
				e.TargetDistance,
				e.PressureBar,
				e.WaterVolume,
				e.RocketMass)
		}

		return nil
	},
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

func init() {
	rootCmd.AddCommand(listCmd)
}
