// ABOUTME: MCP resource implementations for rocketry experiments.
// ABOUTME: Provides rocketry://experiments and rocketry://experiments/{id}.
package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/harperreed/rocketry/internal/trajectory"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	experimentsURI    = "rocketry://experiments"
	experimentURIBase = experimentsURI + "/"
)

func (s *Server) registerResources() {
	// rocketry://experiments - every experiment with its trajectory summary
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         experimentsURI,
		Name:        "Rocket Experiments",
		Description: "All experiments with a per-flight trajectory summary",
		MIMEType:    "application/json",
	}, s.handleExperimentsResource)

	// rocketry://experiments/{id} - one experiment with enriched telemetry
	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: experimentURIBase + "{id}",
		Name:        "Rocket Experiment",
		Description: "One experiment with enriched telemetry",
		MIMEType:    "application/json",
	}, s.handleExperimentResource)
}

type experimentEntry struct {
	ID      int64              `json:"id"`
	Name    string             `json:"nome"`
	Date    string             `json:"data"`
	Summary trajectory.Summary `json:"resumo"`
}

// Resource handlers

func (s *Server) handleExperimentsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	list, err := s.repo.ListExperiments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}

	entries := make([]experimentEntry, 0, len(list))
	for _, e := range list {
		_, records, err := s.repo.GetExperiment(ctx, e.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read experiment %d: %w", e.ID, err)
		}
		entries = append(entries, experimentEntry{
			ID:      e.ID,
			Name:    e.Name,
			Date:    e.Date.String(),
			Summary: trajectory.Summarize(trajectory.Enrich(records)),
		})
	}

	return jsonResource(experimentsURI, map[string]interface{}{
		"experimentos": entries,
		"total":        len(entries),
	})
}

func (s *Server) handleExperimentResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	id, err := strconv.ParseInt(strings.TrimPrefix(uri, experimentURIBase), 10, 64)
	if err != nil || !strings.HasPrefix(uri, experimentURIBase) {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	e, records, err := s.repo.GetExperiment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get experiment: %w", err)
	}

	return jsonResource(uri, map[string]interface{}{
		"experimento":      e,
		"dados_associados": trajectory.Enrich(records),
	})
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
