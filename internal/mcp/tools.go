// ABOUTME: MCP tool implementations for rocketry experiments.
// ABOUTME: Lists, reads, summarizes and deletes experiments with enriched telemetry.
package mcp

import (
	"context"
	"fmt"

	"github.com/harperreed/rocketry/internal/models"
	"github.com/harperreed/rocketry/internal/trajectory"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	// list_experiments
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_experiments",
		Description: "List recorded rocket experiments (metadata only)",
	}, s.handleListExperiments)

	// get_experiment
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_experiment",
		Description: "Get an experiment with its telemetry, including cumulative distance and height above launch",
	}, s.handleGetExperiment)

	// trajectory_summary
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "trajectory_summary",
		Description: "Summarize an experiment's flight: record count, total ground distance and peak height",
	}, s.handleTrajectorySummary)

	// delete_experiment
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_experiment",
		Description: "Delete an experiment and all of its telemetry",
	}, s.handleDeleteExperiment)
}

// Tool input/output types

type listExperimentsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Max results, newest last (default all)"`
}

// experimentView flattens an experiment into schema-friendly fields.
type experimentView struct {
	ID             int64   `json:"id"`
	Name           string  `json:"nome"`
	TargetDistance int     `json:"distancia_alvo"`
	Date           string  `json:"data" jsonschema:"Launch date, YYYY-MM-DD"`
	PressureBar    float64 `json:"pressao_bar"`
	WaterVolume    float64 `json:"volume_agua"`
	RocketMass     float64 `json:"massa_total_foguete"`
}

func viewExperiment(e *models.Experiment) experimentView {
	return experimentView{
		ID:             e.ID,
		Name:           e.Name,
		TargetDistance: e.TargetDistance,
		Date:           e.Date.String(),
		PressureBar:    e.PressureBar,
		WaterVolume:    e.WaterVolume,
		RocketMass:     e.RocketMass,
	}
}

// pointView is one enriched telemetry record.
type pointView struct {
	Timestamp    *string  `json:"timestamp"`
	AccelX       *float64 `json:"accel_x"`
	AccelY       *float64 `json:"accel_y"`
	AccelZ       *float64 `json:"accel_z"`
	SpeedKmph    *float64 `json:"speed_kmph"`
	Longitude    *float64 `json:"longitude"`
	Latitude     *float64 `json:"latitude"`
	Altitude     *float64 `json:"altitude"`
	Distance     float64  `json:"distancia" jsonschema:"Cumulative ground distance in meters"`
	LaunchHeight *float64 `json:"altura_lancamento" jsonschema:"Height above the first record in meters"`
}

func viewPoints(records []models.EnrichedRecord) []pointView {
	out := make([]pointView, len(records))
	for i, r := range records {
		out[i] = pointView{
			Timestamp:    r.Timestamp,
			AccelX:       r.AccelX,
			AccelY:       r.AccelY,
			AccelZ:       r.AccelZ,
			SpeedKmph:    r.SpeedKmph,
			Longitude:    r.Longitude,
			Latitude:     r.Latitude,
			Altitude:     r.Altitude,
			Distance:     r.Distance,
			LaunchHeight: r.LaunchHeight,
		}
	}
	return out
}

type listExperimentsOutput struct {
	Experiments []experimentView `json:"experiments"`
	Count       int              `json:"count"`
}

type experimentIDInput struct {
	ID int64 `json:"id" jsonschema:"Experiment ID"`
}

type getExperimentInput struct {
	ID    int64 `json:"id" jsonschema:"Experiment ID"`
	Limit int   `json:"limit,omitempty" jsonschema:"Return at most this many telemetry records (default all)"`
}

type getExperimentOutput struct {
	Experiment experimentView `json:"experiment"`
	Telemetry  []pointView    `json:"telemetry"`
	Total      int            `json:"total_records"`
}

type summaryOutput struct {
	Experiment experimentView     `json:"experiment"`
	Summary    trajectory.Summary `json:"summary"`
}

type simpleOutput struct {
	Message string `json:"message"`
}

// Tool handlers

func (s *Server) handleListExperiments(ctx context.Context, req *mcp.CallToolRequest, input listExperimentsInput) (*mcp.CallToolResult, listExperimentsOutput, error) {
	list, err := s.repo.ListExperiments(ctx)
	if err != nil {
		return nil, listExperimentsOutput{}, fmt.Errorf("failed to list experiments: %w", err)
	}

	if input.Limit > 0 && len(list) > input.Limit {
		list = list[len(list)-input.Limit:]
	}

	views := make([]experimentView, len(list))
	for i, e := range list {
		views[i] = viewExperiment(e)
	}
	return nil, listExperimentsOutput{Experiments: views, Count: len(views)}, nil
}

func (s *Server) handleGetExperiment(ctx context.Context, req *mcp.CallToolRequest, input getExperimentInput) (*mcp.CallToolResult, getExperimentOutput, error) {
	e, records, err := s.repo.GetExperiment(ctx, input.ID)
	if err != nil {
		return nil, getExperimentOutput{}, fmt.Errorf("failed to get experiment: %w", err)
	}

	points := viewPoints(trajectory.Enrich(records))
	out := getExperimentOutput{Experiment: viewExperiment(e), Telemetry: points, Total: len(points)}
	if input.Limit > 0 && len(points) > input.Limit {
		out.Telemetry = points[:input.Limit]
	}
	return nil, out, nil
}

func (s *Server) handleTrajectorySummary(ctx context.Context, req *mcp.CallToolRequest, input experimentIDInput) (*mcp.CallToolResult, summaryOutput, error) {
	e, records, err := s.repo.GetExperiment(ctx, input.ID)
	if err != nil {
		return nil, summaryOutput{}, fmt.Errorf("failed to get experiment: %w", err)
	}

	return nil, summaryOutput{
		Experiment: viewExperiment(e),
		Summary:    trajectory.Summarize(trajectory.Enrich(records)),
	}, nil
}

func (s *Server) handleDeleteExperiment(ctx context.Context, req *mcp.CallToolRequest, input experimentIDInput) (*mcp.CallToolResult, simpleOutput, error) {
	n, err := s.repo.DeleteExperiment(ctx, input.ID)
	if err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to delete experiment: %w", err)
	}
	if n == 0 {
		return nil, simpleOutput{}, fmt.Errorf("experiment %d not found", input.ID)
	}

	return nil, simpleOutput{
		Message: fmt.Sprintf("Deleted experiment %d", input.ID),
	}, nil
}
