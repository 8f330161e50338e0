// ABOUTME: CLI commands for the Charm KV off-site backup.
// ABOUTME: Push, restore and status against the configured Charm server.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/rocketry/internal/backup"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up experiments to Charm Cloud",
	Long: `Back up experiments to a Charm KV database.

Each experiment is stored as one encrypted entry keyed by its local ID.
Data is end-to-end encrypted with your Charm SSH key.

COMMANDS:

  push      Write every local experiment to the backup
  restore   Load every backed-up experiment into this database
  status    Show what the backup holds

EXAMPLES:

  rocketry backup push
  rocketry backup status
  rocketry --db fresh.db backup restore`,
}

var backupPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Write every experiment to the backup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := backup.Open(cfg.Backup)
		if err != nil {
			return err
		}
		defer client.Close()

		m, err := client.Push(cmd.Context(), db)
		if err != nil {
			return fmt.Errorf("backup push failed: %w", err)
		}

		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Backed up %d experiments (%d records)\n", m.Experiments, m.Records)
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", color.New(color.Faint).Sprint(m.PushID))
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Load backed-up experiments into this database",
	Long: `Load every backed-up experiment into the local database with new IDs.

Existing local experiments are kept; restoring twice creates duplicates.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := backup.Open(cfg.Backup)
		if err != nil {
			return err
		}
		defer client.Close()

		ids, err := client.Restore(cmd.Context(), db)
		if err != nil {
			return fmt.Errorf("backup restore failed: %w", err)
		}

		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Restored %d experiments\n", len(ids))
		return nil
	},
}

var backupStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backup status",
	Args:  cobra.NoArgs,
	Annotations: map[string]string{
		skipDBAnnotation: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := backup.Open(cfg.Backup)
		if err != nil {
			return err
		}
		defer client.Close()

		st, err := client.Status(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		faint := color.New(color.Faint)

		if id, err := backup.AccountID(); err == nil {
			fmt.Fprintf(out, "%s %s\n", faint.Sprint("Account:    "), id)
		}
		fmt.Fprintf(out, "%s %s\n", faint.Sprint("Database:   "), cfg.Backup.DBName)
		fmt.Fprintf(out, "%s %d\n", faint.Sprint("Experiments:"), st.Experiments)
		if st.Manifest != nil {
			fmt.Fprintf(out, "%s %s (%d records)\n", faint.Sprint("Last push:  "),
				st.Manifest.PushedAt.Local().Format("2006-01-02 15:04"), st.Manifest.Records)
		} else {
			fmt.Fprintf(out, "%s never\n", faint.Sprint("Last push:  "))
		}
		if st.ReadOnly {
			color.New(color.FgYellow).Fprintln(out, "Read-only: another process holds the backup lock")
		}
		return nil
	},
}

func init() {
	backupCmd.AddCommand(backupPushCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupStatusCmd)
	rootCmd.AddCommand(backupCmd)
}
