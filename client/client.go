package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"

	"github.com/opportuna/analysis-tracker/chart"
	"github.com/opportuna/analysis-tracker/progress"
	"github.com/opportuna/analysis-tracker/tracing"
)

// DefaultBaseURL is where a locally run analysis backend listens.
const DefaultBaseURL = "http://localhost:8000"

// ErrSessionNotFound is returned when the backend has no progress record
// for the requested session. Callers polling an analysis that has not
// registered yet should treat this as transient.
var ErrSessionNotFound = errors.New("session not found")

// APIError carries the status code and detail message of a failed
// backend request.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("analysis backend returned %d: %s", e.StatusCode, e.Detail)
}

func (e *APIError) Is(target error) bool {
	return target == ErrSessionNotFound && e.StatusCode == http.StatusNotFound
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Used in tests and
// when callers need custom transport settings.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.hc = hc
	}
}

// Client talks to the analysis backend over HTTP.
type Client struct {
	baseURL string
	hc      *http.Client
	log     logr.Logger
}

// New returns a client for the backend at baseURL. An empty baseURL
// falls back to DefaultBaseURL.
func New(baseURL string, log logr.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{},
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReportRequest names the business the backend should analyze.
type ReportRequest struct {
	Company string `json:"company"`
	Sector  string `json:"sector"`
	Service string `json:"service"`
}

// ReportResult is the backend's response to a completed report run.
type ReportResult struct {
	Status    string `json:"status" yaml:"status"`
	PDFPath   string `json:"pdf_path" yaml:"pdf_path"`
	SessionID string `json:"session_id,omitempty" yaml:"session_id,omitempty"`
}

// StartReport kicks off report generation for the given request. The
// call blocks until the backend finishes the report or fails; progress
// for the session is observed separately via GetProgress. The request is
// sent exactly once, errors are returned to the caller rather than
// retried.
func (c *Client) StartReport(ctx context.Context, req ReportRequest, sessionID string) (ReportResult, error) {
	ctx, span := tracing.StartNewSpan(ctx, "start-report",
		attribute.String("session_id", sessionID),
		attribute.String("company", req.Company))
	defer span.End()

	body, err := json.Marshal(req)
	if err != nil {
		return ReportResult{}, fmt.Errorf("unable to encode report request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/optigap/report", bytes.NewReader(body))
	if err != nil {
		return ReportResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		httpReq.Header.Set("session-id", sessionID)
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return ReportResult{}, fmt.Errorf("unable to reach analysis backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ReportResult{}, c.apiError(resp)
	}

	var result ReportResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ReportResult{}, fmt.Errorf("unable to parse report response: %w", err)
	}
	if result.SessionID == "" {
		result.SessionID = sessionID
	}
	return result, nil
}

// ProgressPayload is the raw progress record served by the backend.
type ProgressPayload struct {
	SessionID    string `json:"session_id"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	Step         string `json:"step"`
	Message      string `json:"message"`
	Phase        string `json:"phase"`
	ElapsedTime  string `json:"elapsed_time"`
	ETASeconds   *int   `json:"eta_seconds"`
	ETAFormatted string `json:"eta_formatted"`
	Error        bool   `json:"error"`
	Warning      bool   `json:"warning"`
	LastUpdated  string `json:"last_updated"`
	Company      string `json:"company"`
	Sector       string `json:"sector"`
	Service      string `json:"service"`
}

// State converts the wire payload into the progress package's canonical
// form.
func (p ProgressPayload) State() progress.State {
	s := progress.State{
		SessionID: p.SessionID,
		Phase:     progress.Phase(p.Phase),
		Percent:   p.Progress,
		Step:      p.Step,
		Message:   p.Message,
		Warning:   p.Warning,
	}
	if p.ElapsedTime != "" {
		if d, err := time.ParseDuration(p.ElapsedTime); err == nil {
			s.ElapsedSeconds = d.Seconds()
		}
	}
	if p.ETASeconds != nil {
		s.RemainingSeconds = float64(*p.ETASeconds)
		s.HasEstimate = true
	}
	switch p.Status {
	case "completed":
		s.Percent = 100
		s.Phase = progress.PhaseCompleted
		s.Terminal = true
	case "error":
		s.Failed = true
		s.Terminal = true
		s.Error = p.Message
	}
	if p.Error {
		s.Failed = true
		s.Terminal = true
		if s.Error == "" {
			s.Error = p.Message
		}
	}
	return s
}

// GetProgress fetches the backend's progress record for a session.
// Returns ErrSessionNotFound (wrapped in an APIError) when the backend
// has no record for the id.
func (c *Client) GetProgress(ctx context.Context, sessionID string) (ProgressPayload, error) {
	ctx, span := tracing.StartNewSpan(ctx, "get-progress",
		attribute.String("session_id", sessionID))
	defer span.End()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/analysis/progress/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return ProgressPayload{}, err
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return ProgressPayload{}, fmt.Errorf("unable to reach analysis backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ProgressPayload{}, c.apiError(resp)
	}

	var payload ProgressPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ProgressPayload{}, fmt.Errorf("unable to parse progress response: %w", err)
	}
	if payload.Progress < 0 || payload.Progress > 100 {
		return ProgressPayload{}, fmt.Errorf("progress %d out of range for session %s", payload.Progress, sessionID)
	}
	return payload, nil
}

// FetchProgress implements progress.Fetcher.
func (c *Client) FetchProgress(ctx context.Context, sessionID string) (progress.State, error) {
	payload, err := c.GetProgress(ctx, sessionID)
	if err != nil {
		return progress.State{}, err
	}
	return payload.State(), nil
}

// ClearProgress removes the backend's progress record for a session.
func (c *Client) ClearProgress(ctx context.Context, sessionID string) error {
	ctx, span := tracing.StartNewSpan(ctx, "clear-progress",
		attribute.String("session_id", sessionID))
	defer span.End()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/analysis/progress/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return err
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return fmt.Errorf("unable to reach analysis backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.apiError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// AnalyzeData submits an arbitrary data payload for ad-hoc analysis and
// returns the chart envelope the backend produced. A decoded envelope
// with Success=false is returned alongside the error so callers can
// inspect ErrorCode and Details.
func (c *Client) AnalyzeData(ctx context.Context, payload interface{}) (chart.Envelope, error) {
	ctx, span := tracing.StartNewSpan(ctx, "analyze-data")
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		return chart.Envelope{}, fmt.Errorf("unable to encode analysis payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/analyze-data", bytes.NewReader(body))
	if err != nil {
		return chart.Envelope{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return chart.Envelope{}, fmt.Errorf("unable to reach analysis backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return chart.Envelope{}, c.apiError(resp)
	}

	envelope, err := chart.DecodeEnvelope(resp.Body)
	if err != nil {
		return chart.Envelope{}, err
	}
	if !envelope.Success {
		return envelope, fmt.Errorf("analysis rejected the payload (%s): %s", envelope.ErrorCode, envelope.Error)
	}
	return envelope, nil
}

// apiError reads a failed response body and shapes it into an APIError.
// The backend reports errors as {"detail": "..."}, anything else is kept
// verbatim.
func (c *Client) apiError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Detail: resp.Status}
	}
	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		return &APIError{StatusCode: resp.StatusCode, Detail: detail.Detail}
	}
	return &APIError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
}
