package reporter

import (
	"fmt"
	"io"
	"sync"

	"github.com/opportuna/analysis-tracker/progress"
)

// TextReporter writes progress states as human-readable text with timestamps.
//
// TextReporter formats states into timestamped text lines suitable for
// terminal output or log files. Terminal states, warnings and regular phase
// updates each have their own formatting style.
//
// The reporter is thread-safe and uses a mutex to ensure proper output
// ordering when multiple goroutines report progress concurrently (though
// Progress's architecture typically serializes states through reporter
// workers).
//
// Example output:
//
//	[17:06:14] Initializing: Preparing analysis for Acme (0%, ETA Calculating...)
//	[17:06:17] Competitor analysis: 12% (ETA 4m 10s)
//	[17:06:17]   Identifying competitors for Acme in logistics
//	[17:06:26] Analysis complete!
//
// Usage:
//
//	reporter := reporter.NewTextReporter(os.Stderr)
//	prog, _ := progress.New(
//	    progress.WithReporters(reporter),
//	)
type TextReporter struct {
	writer io.Writer
	mu     sync.Mutex

	lastPhase progress.Phase
}

// NewTextReporter creates a new text progress reporter that writes to w.
//
// The writer is typically os.Stderr for terminal output, but can be any
// io.Writer including files, buffers, or custom writers.
func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{
		writer: w,
	}
}

// Report writes a progress state as human-readable text.
//
// Terminal states render as "Analysis complete!" or "Analysis failed: <err>".
// Phase changes render the step name and task description; updates inside a
// phase render percentage and ETA only. Warnings are prefixed so they stand
// out in scrollback.
//
// If the state's Timestamp is zero, it will be set to the current time.
// This method is safe for concurrent use.
func (t *TextReporter) Report(state progress.State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Normalize state (set timestamp, clamp percent)
	normalize(&state)

	ts := state.Timestamp.Format("15:04:05")
	var output string

	switch {
	case state.Failed:
		output = fmt.Sprintf("[%s] Analysis failed: %s\n", ts, state.Error)

	case state.Terminal || state.Phase == progress.PhaseCompleted:
		output = fmt.Sprintf("[%s] Analysis complete!\n", ts)

	case state.Warning:
		output = fmt.Sprintf("[%s] Warning: %s (%d%%)\n", ts, state.Message, state.Percent)

	case state.Phase != t.lastPhase && state.Step != "":
		output = fmt.Sprintf("[%s] %s: %d%% (ETA %s)\n", ts, state.Step, state.Percent, state.FormatETA())
		if state.Message != "" {
			output += fmt.Sprintf("[%s]   %s\n", ts, state.Message)
		}

	default:
		output = fmt.Sprintf("[%s] %d%% (ETA %s)\n", ts, state.Percent, state.FormatETA())
	}

	t.lastPhase = state.Phase

	if output != "" {
		t.writer.Write([]byte(output))
	}
}
