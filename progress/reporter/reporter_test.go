package reporter

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/opportuna/analysis-tracker/progress"
)

func TestTextReporter_PhaseChange(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewTextReporter(&buf)

	reporter.Report(progress.State{
		Phase:   progress.PhaseCompetitorAnalysis,
		Step:    "Competitor analysis",
		Message: "Identifying competitors for Acme in retail",
		Percent: 12,
	})

	output := buf.String()
	if !strings.Contains(output, "Competitor analysis: 12%") {
		t.Errorf("Expected step line in output, got: %s", output)
	}
	if !strings.Contains(output, "Identifying competitors for Acme in retail") {
		t.Errorf("Expected task line in output, got: %s", output)
	}
}

func TestTextReporter_SamePhaseOmitsStep(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewTextReporter(&buf)

	reporter.Report(progress.State{
		Phase:   progress.PhaseParallelProcessing,
		Step:    "Parallel processing",
		Percent: 40,
	})
	buf.Reset()

	// Second update within the same phase renders percent only
	reporter.Report(progress.State{
		Phase:   progress.PhaseParallelProcessing,
		Step:    "Parallel processing",
		Percent: 45,
	})

	output := buf.String()
	if strings.Contains(output, "Parallel processing:") {
		t.Errorf("Expected no step repeat inside a phase, got: %s", output)
	}
	if !strings.Contains(output, "45%") {
		t.Errorf("Expected percent update, got: %s", output)
	}
}

func TestTextReporter_Terminal(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewTextReporter(&buf)

	reporter.Report(progress.State{
		Phase:    progress.PhaseCompleted,
		Percent:  100,
		Terminal: true,
	})

	if !strings.Contains(buf.String(), "Analysis complete!") {
		t.Errorf("Expected completion message, got: %s", buf.String())
	}
}

func TestTextReporter_Failure(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewTextReporter(&buf)

	reporter.Report(progress.State{
		Percent:  40,
		Terminal: true,
		Failed:   true,
		Error:    "analysis exploded",
	})

	if !strings.Contains(buf.String(), "Analysis failed: analysis exploded") {
		t.Errorf("Expected failure message, got: %s", buf.String())
	}
}

func TestTextReporter_Warning(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewTextReporter(&buf)

	reporter.Report(progress.State{
		Percent: 60,
		Warning: true,
		Message: "trend data incomplete",
	})

	if !strings.Contains(buf.String(), "Warning: trend data incomplete (60%)") {
		t.Errorf("Expected warning line, got: %s", buf.String())
	}
}

func TestTextReporter_ETA(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewTextReporter(&buf)

	reporter.Report(progress.State{
		Phase:            progress.PhaseTrendAnalysis,
		Step:             "Trend analysis",
		Percent:          82,
		HasEstimate:      true,
		RemainingSeconds: 125,
	})

	if !strings.Contains(buf.String(), "ETA 2m 5s") {
		t.Errorf("Expected formatted ETA, got: %s", buf.String())
	}
}

func TestJSONReporter_NDJSON(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewJSONReporter(&buf)

	reporter.Report(progress.State{
		SessionID: "analysis_123",
		Phase:     progress.PhaseInitialization,
		Percent:   5,
	})
	reporter.Report(progress.State{
		SessionID: "analysis_123",
		Phase:     progress.PhaseCompleted,
		Percent:   100,
		Terminal:  true,
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 JSON lines, got %d", len(lines))
	}

	// Each line parses independently
	var first progress.State
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("Unable to parse first line: %v", err)
	}
	if first.SessionID != "analysis_123" || first.Percent != 5 {
		t.Errorf("Unexpected first state: %+v", first)
	}
	if first.Timestamp.IsZero() {
		t.Error("Expected timestamp in JSON output")
	}

	var second progress.State
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("Unable to parse second line: %v", err)
	}
	if !second.Terminal || second.Phase != progress.PhaseCompleted {
		t.Errorf("Unexpected second state: %+v", second)
	}
}

func TestProgressBarReporter_RendersBar(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewProgressBarReporter(&buf)

	reporter.Report(progress.State{
		Step:        "Trend analysis",
		Message:     "Analyzing logistics trends",
		Percent:     78,
		PhaseIndex:  3,
		TotalPhases: 6,
	})

	output := buf.String()
	if !strings.Contains(output, "Trend analysis") {
		t.Errorf("Expected step in bar output, got: %s", output)
	}
	if !strings.Contains(output, "78%") {
		t.Errorf("Expected percentage in bar output, got: %s", output)
	}
	if !strings.Contains(output, "█") || !strings.Contains(output, "░") {
		t.Errorf("Expected bar segments in output, got: %s", output)
	}
	if !strings.Contains(output, "phase 4/6") {
		t.Errorf("Expected phase position in output, got: %s", output)
	}
	if !strings.Contains(output, "Analyzing logistics trends") {
		t.Errorf("Expected task in output, got: %s", output)
	}
}

func TestProgressBarReporter_UpdatesInPlace(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewProgressBarReporter(&buf)

	reporter.Report(progress.State{Percent: 10})
	reporter.Report(progress.State{Percent: 20})

	// The second update rewinds with a carriage return instead of a newline
	output := buf.String()
	if !strings.Contains(output, "\r") {
		t.Error("Expected carriage return for in-place update")
	}
	if strings.Contains(strings.TrimRight(output, "\n"), "\n") {
		t.Error("Expected no newline between in-place updates")
	}
}

func TestProgressBarReporter_TruncatesLongTask(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewProgressBarReporter(&buf)

	reporter.Report(progress.State{
		Percent: 50,
		Message: strings.Repeat("x", 80),
	})

	if !strings.Contains(buf.String(), "...") {
		t.Error("Expected long task to be truncated")
	}
}

func TestProgressBarReporter_Terminal(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewProgressBarReporter(&buf)

	reporter.Report(progress.State{Percent: 90})
	reporter.Report(progress.State{Percent: 100, Terminal: true})

	output := buf.String()
	if !strings.Contains(output, "Analysis complete!\n") {
		t.Errorf("Expected completion line, got: %s", output)
	}
}

func TestProgressBarReporter_Failure(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewProgressBarReporter(&buf)

	reporter.Report(progress.State{Percent: 40})
	reporter.Report(progress.State{Failed: true, Terminal: true, Error: "analysis exploded"})

	if !strings.Contains(buf.String(), "Analysis failed: analysis exploded") {
		t.Errorf("Expected failure line, got: %s", buf.String())
	}
}

func TestChannelReporter_DeliversStates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reporter := NewChannelReporter(ctx)

	reporter.Report(progress.State{Percent: 10})
	reporter.Report(progress.State{Percent: 20})

	first := <-reporter.States()
	if first.Percent != 10 {
		t.Errorf("Expected first state at 10%%, got %d", first.Percent)
	}
	second := <-reporter.States()
	if second.Percent != 20 {
		t.Errorf("Expected second state at 20%%, got %d", second.Percent)
	}

	cancel()
}

func TestChannelReporter_ClosesOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reporter := NewChannelReporter(ctx)

	reporter.Report(progress.State{Percent: 10})
	cancel()

	// Give the closer goroutine a moment
	time.Sleep(50 * time.Millisecond)

	count := 0
	for range reporter.States() {
		count++
	}
	if count != 1 {
		t.Errorf("Expected 1 buffered state before close, got %d", count)
	}

	// Reporting after close must not panic
	reporter.Report(progress.State{Percent: 20})
}

func TestChannelReporter_DropsWhenFull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reporter := NewChannelReporter(ctx)

	// The buffer holds 100 states; everything beyond that is dropped
	for i := 0; i < 105; i++ {
		reporter.Report(progress.State{Percent: i % 100})
	}

	if dropped := reporter.DroppedStates(); dropped != 5 {
		t.Errorf("Expected 5 dropped states, got %d", dropped)
	}
}
