package reporter

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/opportuna/analysis-tracker/progress"
)

// ProgressBarReporter writes progress as a visual progress bar with
// real-time updates.
//
// ProgressBarReporter provides an interactive terminal experience by
// displaying a dynamic progress bar that updates in-place. This is ideal
// for:
//   - Interactive terminal sessions where users want visual feedback
//   - Long-running analysis where percentage completion is important
//   - Situations where per-update logging would be too verbose
//
// The reporter uses carriage returns (\r) to update the same line, creating
// an animated effect. It shows:
//   - Percentage completion
//   - Visual bar with filled (█) and empty (░) segments
//   - Phase position (e.g., "phase 3/6")
//   - The task currently running
//
// IMPORTANT: This reporter is designed for TTY (terminal) output where ANSI
// control characters work. For non-TTY output (pipes, files, CI/CD logs),
// use TextReporter or JSONReporter instead.
//
// The reporter is thread-safe and uses a mutex to ensure the progress bar
// updates atomically without corruption.
//
// Example output:
//
//	Trend analysis  78% |███████████████████░░░░░░| phase 4/6  Analyzing logistics trends
//	Analysis complete!
//
// Usage:
//
//	reporter := reporter.NewProgressBarReporter(os.Stderr)
//	prog, _ := progress.New(
//	    progress.WithReporters(reporter),
//	)
type ProgressBarReporter struct {
	writer      io.Writer
	mu          sync.Mutex
	barWidth    int
	lastLineLen int
	inProgress  bool
}

// NewProgressBarReporter creates a new progress bar reporter that writes to w.
//
// The writer should typically be os.Stderr for terminal output. The progress
// bar will dynamically update in place using carriage returns (\r).
//
// The visual bar width is fixed at 25 characters for consistent formatting.
// The bar uses Unicode block characters (█ for filled, ░ for empty).
func NewProgressBarReporter(w io.Writer) *ProgressBarReporter {
	return &ProgressBarReporter{
		writer:   w,
		barWidth: 25, // Width of the visual bar
	}
}

// Report processes a progress state and updates the progress bar.
//
// Regular updates redraw the bar in-place. Terminal states clear the bar and
// print a static closing line, and warnings print a static line above the
// bar so they survive in scrollback.
//
// This method is safe for concurrent use.
func (p *ProgressBarReporter) Report(state progress.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Normalize state (set timestamp, clamp percent)
	normalize(&state)

	switch {
	case state.Failed:
		// Clear progress bar and print the failure
		p.clearLine()
		fmt.Fprintf(p.writer, "Analysis failed: %s\n", state.Error)

	case state.Terminal || state.Phase == progress.PhaseCompleted:
		// Clear progress bar and print completion message
		p.clearLine()
		fmt.Fprintf(p.writer, "Analysis complete!\n")

	case state.Warning:
		// Print above the bar so the warning stays visible
		p.clearLine()
		if state.Message != "" {
			fmt.Fprintf(p.writer, "Warning: %s\n", state.Message)
		}

	default:
		p.updateProgressBar(state)
	}
}

// updateProgressBar renders and updates the visual progress bar.
//
// This method handles the in-place update logic:
//  1. Clear the previous line by overwriting with spaces
//  2. Render the new progress bar string
//  3. Write without newline (so next update overwrites)
//  4. Add newline when reaching 100%
//
// Format: Trend analysis  78% |███████████████████░░░░░░| phase 4/6  Analyzing logistics trends
func (p *ProgressBarReporter) updateProgressBar(state progress.State) {
	// Build the progress bar string
	barString := p.buildProgressBar(state)

	// Clear the previous line if needed
	if p.lastLineLen > 0 {
		// Move cursor to beginning of line
		fmt.Fprint(p.writer, "\r")
		// Overwrite with spaces to clear
		fmt.Fprint(p.writer, strings.Repeat(" ", p.lastLineLen))
		// Move back to beginning
		fmt.Fprint(p.writer, "\r")
	}

	// Write the new progress bar (without newline - will update in place)
	fmt.Fprint(p.writer, barString)
	p.lastLineLen = utf8.RuneCountInString(barString)
	p.inProgress = true

	// If we've completed (100%), add a newline
	if state.Percent >= 100 {
		fmt.Fprint(p.writer, "\n")
		p.lastLineLen = 0
		p.inProgress = false
	}
}

// buildProgressBar constructs the progress bar string.
//
// Calculates the filled vs empty portions of the bar based on percentage,
// then assembles the complete line with all components.
//
// Returns a string like: "Trend analysis  78% |███████████████████░░░░░░| phase 4/6  Analyzing logistics trends"
func (p *ProgressBarReporter) buildProgressBar(state progress.State) string {
	// Calculate filled portion of the bar
	filledWidth := p.barWidth * state.Percent / 100
	if filledWidth > p.barWidth {
		filledWidth = p.barWidth
	}
	emptyWidth := p.barWidth - filledWidth

	// Build the visual bar
	filledBar := strings.Repeat("█", filledWidth)
	emptyBar := strings.Repeat("░", emptyWidth)
	visualBar := fmt.Sprintf("|%s%s|", filledBar, emptyBar)

	// Build the full line
	// Format: "<step> XX% |bar| phase current/total  task"
	percentStr := fmt.Sprintf("%3d%%", state.Percent)

	parts := []string{}
	if state.Step != "" {
		parts = append(parts, state.Step)
	}
	parts = append(parts, percentStr, visualBar)
	if state.TotalPhases > 0 {
		parts = append(parts, fmt.Sprintf("phase %d/%d", state.PhaseIndex+1, state.TotalPhases))
	}

	line := strings.Join(parts, " ")

	if state.Message != "" {
		// Include the current task with truncation if too long
		task := state.Message
		maxTaskLen := 50 // Maximum length for task display
		if len(task) > maxTaskLen {
			task = task[:maxTaskLen-3] + "..."
		}
		line = fmt.Sprintf("%s  %s", line, task)
	}

	return line
}

// clearLine clears the current progress bar line if one is displayed.
//
// This is called before printing static messages to ensure the progress bar
// doesn't leave artifacts on the terminal.
func (p *ProgressBarReporter) clearLine() {
	if p.lastLineLen > 0 {
		// Move to beginning, clear with spaces, move back
		fmt.Fprint(p.writer, "\r")
		fmt.Fprint(p.writer, strings.Repeat(" ", p.lastLineLen))
		fmt.Fprint(p.writer, "\r")
		p.lastLineLen = 0
		p.inProgress = false
	}
}
