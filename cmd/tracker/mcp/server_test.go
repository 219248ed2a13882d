package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opportuna/analysis-tracker/chart"
	"github.com/opportuna/analysis-tracker/client"
)

// getTestLogger returns a discarding logger for tests
func getTestLogger() logr.Logger {
	return logr.Discard()
}

func TestNewMCPServer(t *testing.T) {
	server, err := NewMCPServer(getTestLogger(), client.DefaultBaseURL)
	if err != nil {
		t.Fatalf("NewMCPServer() error = %v", err)
	}
	if server == nil {
		t.Fatal("NewMCPServer() returned nil server without error")
	}
	if server.server == nil {
		t.Error("NewMCPServer() returned server with nil internal server")
	}
}

func TestHandlersRejectInvalidJSON(t *testing.T) {
	server, err := NewMCPServer(getTestLogger(), client.DefaultBaseURL)
	if err != nil {
		t.Fatalf("Failed to create MCP server: %v", err)
	}

	invalidJSON := json.RawMessage(`{"company": }`)

	tests := []struct {
		name    string
		handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error)
	}{
		{name: "handleReportRun", handler: server.handleReportRun},
		{name: "handleProgressGet", handler: server.handleProgressGet},
		{name: "handleProgressClear", handler: server.handleProgressClear},
		{name: "handleChartsMerge", handler: server.handleChartsMerge},
		{name: "handleAnalyzeData", handler: server.handleAnalyzeData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := &mcp.CallToolRequest{
				Params: &mcp.CallToolParamsRaw{
					Arguments: invalidJSON,
				},
			}

			result, err := tt.handler(context.Background(), request)
			if err == nil {
				t.Error("Handler should return error for invalid JSON")
			}
			if result != nil {
				t.Error("Handler should return nil result on error")
			}
			if !strings.Contains(err.Error(), "invalid parameters") {
				t.Errorf("Error should mention invalid parameters, got: %v", err)
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "file not found",
			err:  fs.ErrNotExist,
			want: "file or directory not found",
		},
		{
			name: "session not found",
			err:  client.ErrSessionNotFound,
			want: "session not found",
		},
		{
			name: "parse error",
			err:  errors.New("unable to parse progress response"),
			want: "parse error",
		},
		{
			name: "validation error",
			err:  errors.New("company name cannot be empty"),
			want: "validation error",
		},
		{
			name: "anything else",
			err:  errors.New("boom"),
			want: "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapError(tt.err)
			if got == nil {
				t.Fatal("wrapError() returned nil")
			}
			if !strings.Contains(got.Error(), tt.want) {
				t.Errorf("wrapError() = %v, want prefix %q", got, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("wrapError() should wrap the original error")
			}
		})
	}
}

func TestChartsMergeTool(t *testing.T) {
	existing := []chart.Artifact{
		{Title: "Revenue by Quarter", Type: chart.TypeBar, Labels: []string{"Q1", "Q2"}, Data: []float64{10, 20}},
	}

	t.Run("refreshes matching chart", func(t *testing.T) {
		out, err := chartsMerge(context.Background(), getTestLogger(), ChartsMergeParams{
			Existing: existing,
			Incoming: json.RawMessage(`[{"title":"Revenue by Quarter","type":"bar","labels":["Q1","Q2"],"data":[15,25]}]`),
		})
		if err != nil {
			t.Fatalf("chartsMerge() error = %v", err)
		}

		var result struct {
			Charts  []chart.Artifact `json:"charts"`
			Updated int              `json:"updated"`
			Added   int              `json:"added"`
		}
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("Failed to decode merge result: %v", err)
		}
		if result.Updated != 1 || result.Added != 0 {
			t.Errorf("merge counts = (%d updated, %d added), want (1, 0)", result.Updated, result.Added)
		}
		if len(result.Charts) != 1 {
			t.Fatalf("merged collection length = %d, want 1", len(result.Charts))
		}
		if result.Charts[0].Data[0] != 15 || result.Charts[0].Data[1] != 25 {
			t.Errorf("merged data = %v, want [15 25]", result.Charts[0].Data)
		}
	})

	t.Run("extracts charts from an envelope payload", func(t *testing.T) {
		out, err := chartsMerge(context.Background(), getTestLogger(), ChartsMergeParams{
			Incoming: json.RawMessage(`{"success":true,"charts":[{"title":"New Insight","type":"pie","labels":["A","B"],"data":[1,2]}]}`),
		})
		if err != nil {
			t.Fatalf("chartsMerge() error = %v", err)
		}
		var result struct {
			Charts []chart.Artifact `json:"charts"`
			Added  int              `json:"added"`
		}
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("Failed to decode merge result: %v", err)
		}
		if result.Added != 1 || len(result.Charts) != 1 {
			t.Errorf("added = %d, charts = %d, want 1 and 1", result.Added, len(result.Charts))
		}
		if result.Charts[0].Origin != chart.OriginAssistant {
			t.Errorf("origin = %s, want %s", result.Charts[0].Origin, chart.OriginAssistant)
		}
	})

	t.Run("filters with a selector", func(t *testing.T) {
		out, err := chartsMerge(context.Background(), getTestLogger(), ChartsMergeParams{
			Existing: existing,
			Incoming: json.RawMessage(`[{"title":"Growth","type":"line","labels":["A"],"data":[1]}]`),
			Selector: "chart.type=line",
		})
		if err != nil {
			t.Fatalf("chartsMerge() error = %v", err)
		}
		var result struct {
			Charts []chart.Artifact `json:"charts"`
		}
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("Failed to decode merge result: %v", err)
		}
		if len(result.Charts) != 1 || result.Charts[0].Type != chart.TypeLine {
			t.Errorf("selector should keep only line charts, got %+v", result.Charts)
		}
	})

	t.Run("requires incoming", func(t *testing.T) {
		_, err := chartsMerge(context.Background(), getTestLogger(), ChartsMergeParams{})
		if err == nil || !strings.Contains(err.Error(), "incoming is required") {
			t.Errorf("expected incoming required error, got %v", err)
		}
	})

	t.Run("rejects a bad selector", func(t *testing.T) {
		_, err := chartsMerge(context.Background(), getTestLogger(), ChartsMergeParams{
			Incoming: json.RawMessage(`[]`),
			Selector: "chart.type=line &&",
		})
		if err == nil {
			t.Error("expected error for malformed selector expression")
		}
	})
}

func TestProgressGetTool(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Session not found"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"session_id": "analysis_1",
			"status":     "running",
			"progress":   42,
			"phase":      "parallel_processing",
			"message":    "Gathering market signals",
		})
	}))
	defer backend.Close()

	t.Run("returns the progress record", func(t *testing.T) {
		out, err := progressGet(context.Background(), getTestLogger(), backend.URL, ProgressGetParams{SessionID: "analysis_1"})
		if err != nil {
			t.Fatalf("progressGet() error = %v", err)
		}
		var payload client.ProgressPayload
		if err := json.Unmarshal([]byte(out), &payload); err != nil {
			t.Fatalf("Failed to decode progress output: %v", err)
		}
		if payload.Progress != 42 || payload.Phase != "parallel_processing" {
			t.Errorf("payload = %+v, want progress 42 in parallel_processing", payload)
		}
	})

	t.Run("missing session surfaces as not found", func(t *testing.T) {
		_, err := progressGet(context.Background(), getTestLogger(), backend.URL, ProgressGetParams{SessionID: "missing"})
		if !errors.Is(err, client.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("requires session_id", func(t *testing.T) {
		_, err := progressGet(context.Background(), getTestLogger(), backend.URL, ProgressGetParams{})
		if err == nil || !strings.Contains(err.Error(), "session_id is required") {
			t.Errorf("expected session_id required error, got %v", err)
		}
	})
}

func TestReportRunToolValidation(t *testing.T) {
	tests := []struct {
		name   string
		params ReportRunParams
		want   string
	}{
		{
			name:   "missing company",
			params: ReportRunParams{Sector: "logistics", Service: "fleet"},
			want:   "company name cannot be empty",
		},
		{
			name:   "missing sector",
			params: ReportRunParams{Company: "Acme", Service: "fleet"},
			want:   "business sector cannot be empty",
		},
		{
			name:   "missing service",
			params: ReportRunParams{Company: "Acme", Sector: "logistics"},
			want:   "service type cannot be empty",
		},
		{
			name:   "bad output format",
			params: ReportRunParams{Company: "Acme", Sector: "logistics", Service: "fleet", OutputFormat: "xml"},
			want:   "output_format must be 'json' or 'yaml'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reportRun(context.Background(), getTestLogger(), client.DefaultBaseURL, tt.params)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("reportRun() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestReportRunToolSimulateOnly(t *testing.T) {
	out, err := reportRun(context.Background(), getTestLogger(), "", ReportRunParams{
		Company:      "Acme",
		Sector:       "logistics",
		Service:      "fleet analytics",
		SessionID:    "analysis_test",
		SimulateOnly: true,
		OutputFormat: "json",
	})
	if err != nil {
		t.Fatalf("reportRun() error = %v", err)
	}

	var result struct {
		SessionID    string `json:"session_id"`
		Status       string `json:"status"`
		FinalPercent int    `json:"final_percent"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("Failed to decode run result: %v", err)
	}
	if result.SessionID != "analysis_test" {
		t.Errorf("session id = %s, want analysis_test", result.SessionID)
	}
	if result.Status != "completed" {
		t.Errorf("status = %s, want completed", result.Status)
	}
	if result.FinalPercent != 100 {
		t.Errorf("final percent = %d, want 100", result.FinalPercent)
	}
}
