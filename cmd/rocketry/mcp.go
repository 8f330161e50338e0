// ABOUTME: CLI command for starting the MCP server.
// ABOUTME: Runs a stdio-based MCP server for AI assistant integration.
package main

import (
	"os/signal"
	"syscall"

	"github.com/harperreed/rocketry/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server communicates via stdin/stdout and reads the same database as the
other commands.

CLIENT CONFIGURATION:

  {
    "mcpServers": {
      "rocketry": {
        "command": "rocketry",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  list_experiments     List experiments
  get_experiment       Experiment with enriched telemetry
  trajectory_summary   Records, distance and apogee for one flight
  delete_experiment    Delete an experiment and its telemetry

AVAILABLE RESOURCES:

  rocketry://experiments        Every experiment with its flight summary
  rocketry://experiments/{id}   One experiment with enriched telemetry`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := mcp.NewServer(db, version)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
