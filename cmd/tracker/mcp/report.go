package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v2"

	"github.com/opportuna/analysis-tracker/cmd/tracker/lib"
	"github.com/opportuna/analysis-tracker/progress"
)

// ReportRunParams defines the parameters for the report_run tool
type ReportRunParams struct {
	Company      string `json:"company"`
	Sector       string `json:"sector"`
	Service      string `json:"service"`
	SessionID    string `json:"session_id,omitempty"`
	SimulateOnly bool   `json:"simulate_only,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
}

// reportRun starts a report and tracks it by calling into the shared run
// library
func reportRun(ctx context.Context, log logr.Logger, baseURL string, params ReportRunParams) (string, error) {
	// Validate inputs
	if params.Company == "" {
		return "", fmt.Errorf("company name cannot be empty")
	}
	if params.Sector == "" {
		return "", fmt.Errorf("business sector cannot be empty")
	}
	if params.Service == "" {
		return "", fmt.Errorf("service type cannot be empty")
	}

	// Set defaults
	if params.OutputFormat == "" {
		params.OutputFormat = "yaml"
	}

	// Validate output format
	if params.OutputFormat != "json" && params.OutputFormat != "yaml" {
		return "", fmt.Errorf("output_format must be 'json' or 'yaml', got: %s", params.OutputFormat)
	}

	config := lib.RunConfig{
		BaseURL:      baseURL,
		Company:      params.Company,
		Sector:       params.Sector,
		Service:      params.Service,
		SessionID:    params.SessionID,
		SimulateOnly: params.SimulateOnly,
		Reporter:     progress.NewNoopReporter(),
	}
	if params.SimulateOnly {
		// A real-time simulation is minutes long, keep tool calls short.
		config.SimulatorInterval = 50 * time.Millisecond
	}

	result, err := lib.Run(ctx, config, log)
	if err != nil {
		return "", fmt.Errorf("report run failed: %w", err)
	}

	// Format output
	var output []byte
	if params.OutputFormat == "json" {
		output, err = json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal result as JSON: %w", err)
		}
	} else {
		output, err = yaml.Marshal(result)
		if err != nil {
			return "", fmt.Errorf("failed to marshal result as YAML: %w", err)
		}
	}

	return string(output), nil
}
