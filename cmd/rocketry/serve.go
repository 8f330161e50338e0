// ABOUTME: CLI command for running the HTTP API.
// ABOUTME: Stops gracefully on SIGINT or SIGTERM.
package main

import (
	"os/signal"
	"syscall"

	"github.com/harperreed/rocketry/internal/api"
	"github.com/spf13/cobra"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the experiment HTTP API.

ENDPOINTS:

  GET    /                                 Service status
  GET    /metrics                          Prometheus metrics
  GET    /experimentos                     List experiments
  POST   /experimentos/novo                Create (multipart form + arquivoDados CSV)
  GET    /experimentos/{id}                Experiment with enriched telemetry
  PUT    /experimentos/{id}                Replace experiment metadata
  DELETE /experimentos/{id}                Delete experiment and telemetry
  GET    /experimentos/download-csv/{id}   Enriched telemetry as CSV

EXAMPLES:

  rocketry serve
  rocketry serve --port 9000
  ROCKETRY_PORT=9000 rocketry serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return api.NewServer(cfg, db).ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
