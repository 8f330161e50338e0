// ABOUTME: CLI command for deleting experiments.
// ABOUTME: Removes the experiment and, by cascade, all of its telemetry.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"del", "rm"},
	Short:   "Delete an experiment",
	Long: `Delete an experiment and all of its telemetry.

EXAMPLES:

  rocketry delete 3
  rocketry rm 3

CAUTION:

  This permanently deletes the experiment. There is no undo.
  Run 'rocketry dump' first if you may need the data again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseExperimentID(args[0])
		if err != nil {
			return err
		}

		// look it up first so the confirmation can name it
		e, records, err := db.GetExperiment(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("experiment not found: %d", id)
		}

		if _, err := db.DeleteExperiment(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to delete experiment: %w", err)
		}

		color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "✗ Deleted %s\n", e.Name)
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %d telemetry records\n",
			color.New(color.Faint).Sprintf("%d", e.ID), len(records))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
