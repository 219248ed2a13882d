package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/opportuna/analysis-tracker/client"
)

// ProgressGetParams defines the parameters for the progress_get tool
type ProgressGetParams struct {
	SessionID string `json:"session_id"`
}

// ProgressClearParams defines the parameters for the progress_clear tool
type ProgressClearParams struct {
	SessionID string `json:"session_id"`
}

// progressGet fetches the backend's progress record for a session
func progressGet(ctx context.Context, log logr.Logger, baseURL string, params ProgressGetParams) (string, error) {
	if params.SessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}

	c := client.New(baseURL, log)
	payload, err := c.GetProgress(ctx, params.SessionID)
	if err != nil {
		return "", err
	}

	output, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal progress: %w", err)
	}

	return string(output), nil
}

// progressClear removes the backend's progress record for a session
func progressClear(ctx context.Context, log logr.Logger, baseURL string, params ProgressClearParams) (string, error) {
	if params.SessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}

	c := client.New(baseURL, log)
	if err := c.ClearProgress(ctx, params.SessionID); err != nil {
		return "", err
	}

	return fmt.Sprintf("Progress data cleared for session %s", params.SessionID), nil
}
