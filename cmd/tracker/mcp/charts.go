package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/opportuna/analysis-tracker/chart"
	"github.com/opportuna/analysis-tracker/client"
)

// ChartsMergeParams defines the parameters for the charts_merge tool
type ChartsMergeParams struct {
	Existing []chart.Artifact `json:"existing,omitempty"`
	Incoming json.RawMessage  `json:"incoming"`
	Selector string           `json:"selector,omitempty"`
	Origin   string           `json:"origin,omitempty"`
}

// AnalyzeDataParams defines the parameters for the analyze_data tool
type AnalyzeDataParams struct {
	Data json.RawMessage `json:"data"`
}

// chartsMerge reconciles incoming chart artifacts into an existing set
func chartsMerge(ctx context.Context, log logr.Logger, params ChartsMergeParams) (string, error) {
	if len(params.Incoming) == 0 {
		return "", fmt.Errorf("incoming is required")
	}

	origin := chart.OriginAssistant
	if params.Origin != "" {
		origin = chart.Origin(params.Origin)
	}

	// Incoming is either a bare chart list or a full analysis envelope.
	var incoming []chart.Artifact
	if err := json.Unmarshal(params.Incoming, &incoming); err != nil {
		extracted, exErr := chart.ExtractArtifacts(bytes.NewReader(params.Incoming), origin)
		if exErr != nil {
			return "", exErr
		}
		incoming = extracted
	} else {
		for i := range incoming {
			if incoming[i].Origin == "" {
				incoming[i].Origin = origin
			}
		}
	}

	merged, updated, added := chart.Merge(params.Existing, incoming)

	if params.Selector != "" {
		selector, err := chart.NewSelector[chart.Artifact](params.Selector)
		if err != nil {
			return "", err
		}
		merged, err = selector.MatchList(merged)
		if err != nil {
			return "", err
		}
	}

	log.V(7).Info("reconciled chart artifacts", "updated", updated, "added", added, "total", len(merged))

	result := struct {
		Charts  []chart.Artifact `json:"charts"`
		Updated int              `json:"updated"`
		Added   int              `json:"added"`
	}{
		Charts:  merged,
		Updated: updated,
		Added:   added,
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal merge result: %w", err)
	}

	return string(output), nil
}

// analyzeData submits a payload for ad-hoc analysis
func analyzeData(ctx context.Context, log logr.Logger, baseURL string, params AnalyzeDataParams) (string, error) {
	if len(params.Data) == 0 {
		return "", fmt.Errorf("data is required")
	}

	c := client.New(baseURL, log)
	envelope, err := c.AnalyzeData(ctx, params.Data)
	if err != nil {
		return "", fmt.Errorf("analysis failed: %w", err)
	}

	result := struct {
		Summary        string           `json:"analysis_summary"`
		Charts         []chart.Artifact `json:"charts"`
		RawDataSize    int              `json:"raw_data_size"`
		ProcessingTime float64          `json:"processing_time"`
	}{
		Summary:        envelope.AnalysisSummary,
		Charts:         envelope.Charts,
		RawDataSize:    envelope.RawDataSize,
		ProcessingTime: envelope.ProcessingTime,
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal analysis result: %w", err)
	}

	return string(output), nil
}
