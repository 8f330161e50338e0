// ABOUTME: Exposes rocketry experiments and their enriched flight telemetry over MCP.
// ABOUTME: Registers the experiment tools and the rocketry:// resources on a stdio server.
package mcp

import (
	"context"
	"errors"

	"github.com/harperreed/rocketry/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server answers MCP clients from repo. Its only write is delete_experiment.
type Server struct {
	mcpServer *mcp.Server
	repo      storage.Repository
}

// NewServer registers the list_experiments, get_experiment, trajectory_summary
// and delete_experiment tools plus the experiment resources.
func NewServer(repo storage.Repository, version string) (*Server, error) {
	if repo == nil {
		return nil, errors.New("mcp: nil experiment repository")
	}
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "rocketry",
			Version: version,
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		repo:      repo,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve blocks answering requests on stdin/stdout until ctx is done or the
// client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
