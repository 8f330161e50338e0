// ABOUTME: Tests for MCP server, tools, and resources.
// ABOUTME: Covers NewServer, tool handlers, and resource handlers.
package mcp

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/harperreed/rocketry/internal/models"
	"github.com/harperreed/rocketry/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// setupTestDB creates a test database in a temp directory.
func setupTestDB(t *testing.T) *storage.DB {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "rocketry.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// seedFlight stores an experiment with three telemetry points climbing north.
func seedFlight(t *testing.T, db *storage.DB, name string) int64 {
	t.Helper()
	ctx := context.Background()

	e := models.NewExperiment(name, 80, models.NewDate(2024, time.June, 1), 5, 600, 350)
	id, err := db.CreateExperiment(ctx, e)
	if err != nil {
		t.Fatalf("CreateExperiment failed: %v", err)
	}

	records := []models.TelemetryRecord{
		{ExperimentID: id, Timestamp: models.String("00:00:00"), Latitude: models.Float(0), Longitude: models.Float(0), Altitude: models.Float(100)},
		{ExperimentID: id, Timestamp: models.String("00:00:01"), Latitude: models.Float(0.0001), Longitude: models.Float(0), Altitude: models.Float(130)},
		{ExperimentID: id, Timestamp: models.String("00:00:02"), Latitude: models.Float(0.0002), Longitude: models.Float(0), Altitude: models.Float(120)},
	}
	if _, err := db.InsertTelemetryBatch(ctx, records); err != nil {
		t.Fatalf("InsertTelemetryBatch failed: %v", err)
	}
	return id
}

func TestNewServer(t *testing.T) {
	db := setupTestDB(t)

	server, err := NewServer(db, "test")
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	if server == nil {
		t.Fatal("Expected non-nil server")
	}
	if server.mcpServer == nil {
		t.Error("Expected non-nil mcpServer")
	}
	if server.repo == nil {
		t.Error("Expected non-nil repo")
	}
}

func TestNewServerRequiresRepository(t *testing.T) {
	if _, err := NewServer(nil, "test"); err == nil {
		t.Error("Expected error for nil repository")
	}
}

func TestHandleListExperiments(t *testing.T) {
	db := setupTestDB(t)
	server, _ := NewServer(db, "test")
	ctx := context.Background()

	seedFlight(t, db, "first")
	seedFlight(t, db, "second")
	seedFlight(t, db, "third")

	tests := []struct {
		name      string
		input     listExperimentsInput
		wantCount int
		wantLast  string
	}{
		{name: "all", input: listExperimentsInput{}, wantCount: 3, wantLast: "third"},
		{name: "limit keeps newest", input: listExperimentsInput{Limit: 2}, wantCount: 2, wantLast: "third"},
		{name: "limit above count", input: listExperimentsInput{Limit: 10}, wantCount: 3, wantLast: "third"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, output, err := server.handleListExperiments(ctx, &mcp.CallToolRequest{}, tt.input)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if output.Count != tt.wantCount || len(output.Experiments) != tt.wantCount {
				t.Fatalf("Count = %d (%d items), want %d", output.Count, len(output.Experiments), tt.wantCount)
			}
			if last := output.Experiments[len(output.Experiments)-1].Name; last != tt.wantLast {
				t.Errorf("last experiment = %q, want %q", last, tt.wantLast)
			}
		})
	}
}

func TestHandleListExperimentsEmpty(t *testing.T) {
	db := setupTestDB(t)
	server, _ := NewServer(db, "test")

	_, output, err := server.handleListExperiments(context.Background(), &mcp.CallToolRequest{}, listExperimentsInput{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if output.Count != 0 {
		t.Errorf("Count = %d, want 0", output.Count)
	}
	if output.Experiments == nil {
		t.Error("Expected empty, non-nil slice")
	}
}

func TestHandleGetExperiment(t *testing.T) {
	db := setupTestDB(t)
	server, _ := NewServer(db, "test")
	ctx := context.Background()
	id := seedFlight(t, db, "flight")

	_, output, err := server.handleGetExperiment(ctx, &mcp.CallToolRequest{}, getExperimentInput{ID: id})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if output.Experiment.Name != "flight" {
		t.Errorf("Name = %q, want flight", output.Experiment.Name)
	}
	if output.Total != 3 || len(output.Telemetry) != 3 {
		t.Fatalf("Total = %d (%d items), want 3", output.Total, len(output.Telemetry))
	}

	if d := output.Telemetry[0].Distance; d != 0 {
		t.Errorf("first distance = %v, want 0", d)
	}
	if output.Telemetry[2].Distance <= output.Telemetry[1].Distance {
		t.Error("distance should increase along the track")
	}
	if h := output.Telemetry[1].LaunchHeight; h == nil || *h != 30 {
		t.Errorf("launch height = %v, want 30", h)
	}

	_, limited, err := server.handleGetExperiment(ctx, &mcp.CallToolRequest{}, getExperimentInput{ID: id, Limit: 1})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(limited.Telemetry) != 1 || limited.Total != 3 {
		t.Errorf("limited output = %d items of %d, want 1 of 3", len(limited.Telemetry), limited.Total)
	}
}

func TestHandleGetExperimentNotFound(t *testing.T) {
	db := setupTestDB(t)
	server, _ := NewServer(db, "test")

	_, _, err := server.handleGetExperiment(context.Background(), &mcp.CallToolRequest{}, getExperimentInput{ID: 404})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Error %q should mention not found", err.Error())
	}
}

func TestHandleTrajectorySummary(t *testing.T) {
	db := setupTestDB(t)
	server, _ := NewServer(db, "test")
	id := seedFlight(t, db, "flight")

	_, output, err := server.handleTrajectorySummary(context.Background(), &mcp.CallToolRequest{}, experimentIDInput{ID: id})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	s := output.Summary
	if s.Records != 3 || s.FixedRecords != 3 {
		t.Errorf("Records = %d, FixedRecords = %d, want 3/3", s.Records, s.FixedRecords)
	}
	if s.MaxHeight == nil || *s.MaxHeight != 30 {
		t.Errorf("MaxHeight = %v, want 30", s.MaxHeight)
	}
	// two steps of 0.0001 degrees of latitude, about 11.12 m each
	if s.TotalDistance < 22 || s.TotalDistance > 22.5 {
		t.Errorf("TotalDistance = %v, want about 22.24", s.TotalDistance)
	}
}

func TestHandleDeleteExperiment(t *testing.T) {
	db := setupTestDB(t)
	server, _ := NewServer(db, "test")
	ctx := context.Background()
	id := seedFlight(t, db, "flight")

	_, output, err := server.handleDeleteExperiment(ctx, &mcp.CallToolRequest{}, experimentIDInput{ID: id})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if output.Message == "" {
		t.Error("Expected non-empty Message")
	}

	if _, _, err := db.GetExperiment(ctx, id); err == nil {
		t.Error("Expected experiment to be deleted")
	}

	_, _, err = server.handleDeleteExperiment(ctx, &mcp.CallToolRequest{}, experimentIDInput{ID: id})
	if err == nil {
		t.Error("Expected error deleting a missing experiment")
	}
}

func TestHandleExperimentsResource(t *testing.T) {
	db := setupTestDB(t)
	server, _ := NewServer(db, "test")
	seedFlight(t, db, "alpha")
	seedFlight(t, db, "beta")

	result, err := server.handleExperimentsResource(context.Background(), &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Contents) != 1 {
		t.Fatalf("Expected 1 content, got %d", len(result.Contents))
	}
	content := result.Contents[0]
	if content.URI != experimentsURI {
		t.Errorf("URI = %q, want %q", content.URI, experimentsURI)
	}
	if content.MIMEType != "application/json" {
		t.Errorf("MIMEType = %q, want application/json", content.MIMEType)
	}

	var body struct {
		Experiments []experimentEntry `json:"experimentos"`
		Total       int               `json:"total"`
	}
	if err := json.Unmarshal([]byte(content.Text), &body); err != nil {
		t.Fatalf("resource is not valid JSON: %v", err)
	}
	if body.Total != 2 || len(body.Experiments) != 2 {
		t.Fatalf("Total = %d, want 2", body.Total)
	}
	if body.Experiments[0].Name != "alpha" || body.Experiments[0].Summary.Records != 3 {
		t.Errorf("unexpected first entry %+v", body.Experiments[0])
	}
	if body.Experiments[0].Date != "2024-06-01" {
		t.Errorf("Date = %q, want 2024-06-01", body.Experiments[0].Date)
	}
}

func TestHandleExperimentResource(t *testing.T) {
	db := setupTestDB(t)
	server, _ := NewServer(db, "test")
	id := seedFlight(t, db, "flight")
	ctx := context.Background()

	uri := experimentURIBase + "1"
	if id != 1 {
		t.Fatalf("expected first experiment to get id 1, got %d", id)
	}

	result, err := server.handleExperimentResource(ctx, &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: uri},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(result.Contents[0].Text, "altura_lancamento") {
		t.Error("Expected enriched telemetry in resource")
	}

	_, err = server.handleExperimentResource(ctx, &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: experimentURIBase + "abc"},
	})
	if err == nil {
		t.Error("Expected error for non-numeric id")
	}
}
