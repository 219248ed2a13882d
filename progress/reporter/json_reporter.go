package reporter

import (
	"fmt"
	"io"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/opportuna/analysis-tracker/progress"
)

// JSONReporter writes progress states as newline-delimited JSON (NDJSON).
//
// JSONReporter serializes each state to a single JSON line, creating a
// stream of structured data suitable for machine consumption. This format is
// ideal for:
//   - Log aggregation systems (Elasticsearch, Splunk, etc.)
//   - External monitoring tools
//   - Programmatic analysis of progress data
//   - CI/CD pipelines that need to parse progress
//
// Each line is a complete, valid JSON object that can be parsed
// independently, making the format robust to interruptions and easy to
// stream.
//
// The reporter is thread-safe and uses a mutex to ensure each JSON line is
// written atomically without interleaving.
//
// Example output:
//
//	{"timestamp":"2026-03-12T17:06:14Z","session_id":"analysis_1773421574","phase":"initialization","percent":0}
//	{"timestamp":"2026-03-12T17:06:17Z","session_id":"analysis_1773421574","phase":"competitor_analysis","percent":12}
//	{"timestamp":"2026-03-12T17:06:26Z","session_id":"analysis_1773421574","phase":"completed","percent":100,"terminal":true}
//
// Usage:
//
//	reporter := reporter.NewJSONReporter(os.Stderr)
//	prog, _ := progress.New(
//	    progress.WithReporters(reporter),
//	)
type JSONReporter struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONReporter creates a new JSON progress reporter that writes to w.
//
// The writer can be os.Stdout, os.Stderr, a file, or any io.Writer. Each
// progress state will be written as a single JSON line (NDJSON format).
func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{
		writer: w,
	}
}

// Report writes a progress state as a JSON line.
//
// The state is marshaled to JSON and written with a newline, creating NDJSON
// format. All set fields of the State struct are included in the output.
//
// If the state's Timestamp is zero, it will be set to the current time
// before marshaling.
//
// Errors during JSON marshaling or writing are silently ignored to avoid
// disrupting the analysis. In production use, consider wrapping the writer
// with error handling if you need to detect write failures.
//
// This method is safe for concurrent use.
func (j *JSONReporter) Report(state progress.State) {
	j.mu.Lock()
	defer j.mu.Unlock()

	// Normalize state (set timestamp, clamp percent)
	normalize(&state)

	// Marshal and write
	data, err := json.Marshal(state)
	if err != nil {
		return // Silently skip errors to avoid disrupting analysis
	}
	fmt.Fprintln(j.writer, string(data))
}
