package lib

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/opportuna/analysis-tracker/client"
	"github.com/opportuna/analysis-tracker/progress"
)

// RunConfig holds configuration for tracking one report run
type RunConfig struct {
	BaseURL           string
	Company           string
	Sector            string
	Service           string
	SessionID         string
	PhasesFile        string
	PollInterval      time.Duration
	GraceWindow       time.Duration
	SimulateOnly      bool
	SimulatorInterval time.Duration

	// Reporter receives every progress state the coordinator emits.
	// Defaults to a no-op reporter.
	Reporter progress.Reporter
}

// RunResult summarizes a finished run.
type RunResult struct {
	SessionID      string  `json:"session_id" yaml:"session_id"`
	Status         string  `json:"status" yaml:"status"`
	PDFPath        string  `json:"pdf_path,omitempty" yaml:"pdf_path,omitempty"`
	FinalPercent   int     `json:"final_percent" yaml:"final_percent"`
	FinalPhase     string  `json:"final_phase" yaml:"final_phase"`
	ElapsedSeconds float64 `json:"elapsed_seconds" yaml:"elapsed_seconds"`
	Error          string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// Run starts a report on the backend and tracks it to completion,
// streaming progress to the configured reporter. It is shared by the CLI
// and the MCP server. With SimulateOnly set no backend is contacted and
// the run plays out on the simulator alone.
func Run(ctx context.Context, config RunConfig, log logr.Logger) (RunResult, error) {
	session := progress.NewSession(config.Company, config.Sector, config.Service)
	if config.SessionID != "" {
		session.ID = config.SessionID
	}
	if err := session.Validate(); err != nil {
		return RunResult{}, err
	}

	model := progress.DefaultModel()
	if config.PhasesFile != "" {
		var err error
		model, err = progress.LoadPhaseModel(config.PhasesFile)
		if err != nil {
			return RunResult{}, err
		}
	}

	rep := config.Reporter
	if rep == nil {
		rep = progress.NewNoopReporter()
	}

	var (
		mu      sync.Mutex
		last    progress.State
		report  client.ReportResult
		failure error
	)
	terminal := make(chan struct{})

	opts := []progress.CoordinatorOption{
		progress.WithPhaseModel(model),
		progress.WithPollInterval(config.PollInterval),
		progress.WithSimulatorInterval(config.SimulatorInterval),
		progress.WithGraceWindow(config.GraceWindow),
		progress.WithOnProgress(func(st progress.State) {
			mu.Lock()
			last = st
			mu.Unlock()
			rep.Report(st)
		}),
		progress.WithOnComplete(func(result interface{}) {
			mu.Lock()
			if r, ok := result.(client.ReportResult); ok {
				report = r
			}
			mu.Unlock()
			close(terminal)
		}),
		progress.WithOnError(func(err error) {
			mu.Lock()
			failure = err
			mu.Unlock()
			close(terminal)
		}),
	}

	var apiClient *client.Client
	if !config.SimulateOnly {
		apiClient = client.New(config.BaseURL, log)
		opts = append(opts, progress.WithFetcher(apiClient))
	}

	coordinator, err := progress.NewCoordinator(session, log, opts...)
	if err != nil {
		return RunResult{}, err
	}
	if err := coordinator.Start(ctx); err != nil {
		return RunResult{}, err
	}
	defer coordinator.Stop()

	g, groupCtx := errgroup.WithContext(ctx)
	if apiClient != nil {
		g.Go(func() error {
			result, err := apiClient.StartReport(groupCtx, client.ReportRequest{
				Company: session.Company,
				Sector:  session.Sector,
				Service: session.Service,
			}, session.ID)
			if err != nil {
				coordinator.Fail(err)
				return fmt.Errorf("report request failed: %w", err)
			}
			mu.Lock()
			report = result
			mu.Unlock()
			coordinator.Complete(result)
			return nil
		})
	}
	g.Go(func() error {
		select {
		case <-terminal:
			return nil
		case <-groupCtx.Done():
			return groupCtx.Err()
		}
	})
	runErr := g.Wait()

	if apiClient != nil {
		// Progress records on the backend are keyed per session and never
		// expire on their own.
		clearCtx, clearCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer clearCancel()
		if err := apiClient.ClearProgress(clearCtx, session.ID); err != nil {
			log.V(7).Info("unable to clear progress record", "session", session.ID, "error", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	result := RunResult{
		SessionID:      session.ID,
		Status:         "completed",
		PDFPath:        report.PDFPath,
		FinalPercent:   last.Percent,
		FinalPhase:     string(last.Phase),
		ElapsedSeconds: session.Elapsed().Seconds(),
	}
	if failure == nil {
		failure = runErr
	}
	if failure != nil {
		result.Status = "error"
		result.Error = failure.Error()
	}
	return result, failure
}
