package lib

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opportuna/analysis-tracker/client"
	"github.com/opportuna/analysis-tracker/progress"
)

type captureReporter struct {
	mu     sync.Mutex
	states []progress.State
}

func (r *captureReporter) Report(st progress.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, st)
}

func (r *captureReporter) snapshot() []progress.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]progress.State(nil), r.states...)
}

func TestRun_TracksBackendReport(t *testing.T) {
	var cleared atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/optigap/report":
			assert.Equal(t, "analysis_run_test", r.Header.Get("session-id"))
			w.Write([]byte(`{"status": "completed", "pdf_path": "/reports/acme.pdf"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/analysis/progress/analysis_run_test":
			w.Write([]byte(`{"session_id": "analysis_run_test", "status": "running", "progress": 42, "phase": "parallel_processing"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/analysis/progress/analysis_run_test":
			cleared.Store(true)
			w.Write([]byte(`{"status": "cleared"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail": "Analysis session not found"}`))
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	rep := &captureReporter{}
	result, err := Run(ctx, RunConfig{
		BaseURL:      server.URL,
		Company:      "Acme Corp",
		Sector:       "retail",
		Service:      "pricing analytics",
		SessionID:    "analysis_run_test",
		PollInterval: 10 * time.Millisecond,
		Reporter:     rep,
	}, logr.Discard())

	require.NoError(t, err)
	assert.Equal(t, "analysis_run_test", result.SessionID)
	assert.Equal(t, "completed", result.Status)
	assert.Equal(t, "/reports/acme.pdf", result.PDFPath)
	assert.Equal(t, 100, result.FinalPercent)
	assert.Equal(t, "completed", result.FinalPhase)
	assert.GreaterOrEqual(t, result.ElapsedSeconds, 0.0)
	assert.True(t, cleared.Load())

	states := rep.snapshot()
	require.NotEmpty(t, states)
	assert.Equal(t, 0, states[0].Percent)
	assert.Equal(t, progress.SourceCoordinator, states[0].Source)
	last := states[len(states)-1]
	assert.True(t, last.Terminal)
	assert.Equal(t, 100, last.Percent)
}

func TestRun_ReportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/optigap/report" {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail": "report generation failed"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Analysis session not found"}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := Run(ctx, RunConfig{
		BaseURL:      server.URL,
		Company:      "Acme Corp",
		Sector:       "retail",
		Service:      "pricing analytics",
		PollInterval: 10 * time.Millisecond,
	}, logr.Discard())

	require.Error(t, err)
	var apiErr *client.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "error", result.Status)
	assert.Contains(t, result.Error, "analysis backend returned 500")
}

func TestRun_SimulateOnly(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	rep := &captureReporter{}
	result, err := Run(ctx, RunConfig{
		Company:           "Globex Logistics",
		Sector:            "transport",
		Service:           "route optimization",
		SimulateOnly:      true,
		SimulatorInterval: time.Millisecond,
		Reporter:          rep,
	}, logr.Discard())

	require.NoError(t, err)
	assert.Contains(t, result.SessionID, "analysis_")
	assert.Equal(t, "completed", result.Status)
	assert.Empty(t, result.PDFPath)
	assert.Equal(t, 100, result.FinalPercent)
	assert.Equal(t, "completed", result.FinalPhase)

	states := rep.snapshot()
	require.NotEmpty(t, states)
	assert.Equal(t, 0, states[0].Percent)
	assert.True(t, states[len(states)-1].Terminal)
}

func TestRun_CustomPhases(t *testing.T) {
	phasesFile := filepath.Join(t.TempDir(), "phases.yaml")
	require.NoError(t, os.WriteFile(phasesFile, []byte(`- name: warmup
  title: Warming up
  task: Warming up for {{company}}
  estimatedSeconds: 5
  ceiling: 20
- name: crunch
  title: Crunching numbers
  estimatedSeconds: 20
  ceiling: 80
- name: wrap
  title: Wrapping up
  estimatedSeconds: 10
  ceiling: 100
`), 0644))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	rep := &captureReporter{}
	result, err := Run(ctx, RunConfig{
		Company:           "Acme Corp",
		Sector:            "retail",
		Service:           "pricing analytics",
		PhasesFile:        phasesFile,
		SimulateOnly:      true,
		SimulatorInterval: time.Millisecond,
		Reporter:          rep,
	}, logr.Discard())

	require.NoError(t, err)
	assert.Equal(t, 100, result.FinalPercent)

	states := rep.snapshot()
	require.NotEmpty(t, states)
	assert.Equal(t, "Warming up for Acme Corp", states[0].Message)
	assert.Equal(t, 3, states[0].TotalPhases)
}

func TestRun_InvalidSession(t *testing.T) {
	_, err := Run(context.Background(), RunConfig{
		Sector:  "retail",
		Service: "pricing analytics",
	}, logr.Discard())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "company name")
}

func TestRun_InvalidPhasesFile(t *testing.T) {
	_, err := Run(context.Background(), RunConfig{
		Company:    "Acme Corp",
		Sector:     "retail",
		Service:    "pricing analytics",
		PhasesFile: filepath.Join(t.TempDir(), "missing.yaml"),
	}, logr.Discard())

	require.Error(t, err)
}
