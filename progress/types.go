package progress

import (
	"fmt"
	"time"
)

// Phase identifies a stage of the remote analysis pipeline. The values
// mirror the phase names the backend writes into its progress records.
type Phase string

const (
	PhaseInitialization     Phase = "initialization"
	PhaseCompetitorAnalysis Phase = "competitor_analysis"
	PhaseParallelProcessing Phase = "parallel_processing"
	PhaseTrendAnalysis      Phase = "trend_analysis"
	PhaseFinalAnalysis      Phase = "final_analysis"
	PhaseReportGeneration   Phase = "report_generation"

	// PhaseCompleted is the terminal phase the backend reports once the
	// report has been generated.
	PhaseCompleted Phase = "completed"
)

// Source identifies which component produced a progress state.
type Source string

const (
	// SourceCoordinator marks states synthesized by the coordinator itself,
	// such as the initial connection state and terminal states.
	SourceCoordinator Source = "coordinator"

	// SourcePoller marks authoritative states fetched from the backend.
	SourcePoller Source = "poller"

	// SourceSimulator marks locally simulated states emitted when the
	// backend cannot be polled.
	SourceSimulator Source = "simulator"
)

// State is a single snapshot of analysis progress. States flow from a source
// (poller or simulator) through the coordinator to reporters, and every
// snapshot is self-contained so reporters never need to track history.
type State struct {
	// Timestamp is when this state was produced. Filled automatically if
	// the source left it zero.
	Timestamp time.Time `json:"timestamp"`

	// SessionID ties the state to one analysis session.
	SessionID string `json:"session_id,omitempty"`

	// Phase is the pipeline stage the analysis is currently in.
	Phase Phase `json:"phase,omitempty"`

	// PhaseIndex is the zero-based position of Phase in the phase model,
	// and TotalPhases the model's length. Together they let reporters
	// render "phase 3/6" style output.
	PhaseIndex  int `json:"phase_index,omitempty"`
	TotalPhases int `json:"total_phases,omitempty"`

	// Percent is overall completion in the range 0-100. The coordinator
	// guarantees the emitted stream never decreases.
	Percent int `json:"percent"`

	// Step is a short human-readable name for the current stage.
	Step string `json:"step,omitempty"`

	// Message describes the work currently happening, for example
	// "Identifying competitors for Acme in logistics".
	Message string `json:"message,omitempty"`

	// ElapsedSeconds is time spent since the session started.
	ElapsedSeconds float64 `json:"elapsed_seconds,omitempty"`

	// RemainingSeconds estimates time left. Valid only when HasEstimate is
	// set; derived from elapsed time and percentage when the backend does
	// not supply one.
	RemainingSeconds float64 `json:"remaining_seconds,omitempty"`
	HasEstimate      bool    `json:"has_estimate,omitempty"`

	// Velocity is the observed completion rate in percentage points per
	// second, measured between consecutive coordinator emissions.
	Velocity float64 `json:"velocity,omitempty"`

	// Source identifies the component that produced the state.
	Source Source `json:"source,omitempty"`

	// Warning is set when the backend flagged the update as degraded but
	// not fatal.
	Warning bool `json:"warning,omitempty"`

	// Terminal marks the final state of a session. Exactly one terminal
	// state is emitted per session, whether it completed or failed.
	Terminal bool `json:"terminal,omitempty"`

	// Failed and Error describe a terminal failure.
	Failed bool   `json:"failed,omitempty"`
	Error  string `json:"error,omitempty"`
}

// FormatETA renders the remaining-time estimate the way the backend does:
// "Calculating..." until an estimate exists, then a compact duration such as
// "45s", "2m 5s" or "1h 12m".
func (s State) FormatETA() string {
	if !s.HasEstimate {
		return "Calculating..."
	}
	secs := int(s.RemainingSeconds)
	if secs < 0 {
		secs = 0
	}
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm %ds", secs/60, secs%60)
	default:
		return fmt.Sprintf("%dh %dm", secs/3600, (secs%3600)/60)
	}
}

// normalize fills derived fields before a state reaches reporters. The
// timestamp is stamped if missing, the percentage is clamped into 0-100, and
// a remaining-time estimate is derived from elapsed time when the source did
// not supply one.
func normalize(s State) State {
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}
	if s.Percent < 0 {
		s.Percent = 0
	}
	if s.Percent > 100 {
		s.Percent = 100
	}
	if s.Terminal {
		s.RemainingSeconds = 0
		return s
	}
	if !s.HasEstimate && s.Percent > 0 && s.ElapsedSeconds > 0 {
		total := s.ElapsedSeconds * 100.0 / float64(s.Percent)
		s.RemainingSeconds = total - s.ElapsedSeconds
		s.HasEstimate = true
	}
	if s.RemainingSeconds < 0 {
		s.RemainingSeconds = 0
	}
	return s
}

// Reporter consumes progress states. Implementations must be safe for
// concurrent use; states may arrive from multiple goroutines.
type Reporter interface {
	Report(state State)
}

// Collector gathers progress states from a producer and hands them to the
// hub over a channel. A collector's Report must never block the producer.
type Collector interface {
	Reporter

	// ID uniquely identifies the collector so the hub can unsubscribe it.
	ID() int

	// CollectChannel returns the channel the hub drains states from.
	CollectChannel() chan State
}

// ProgressInterface is the hub surface producers interact with.
type ProgressInterface interface {
	Subscribe(collector Collector)
	Unsubscribe(collector Collector)
}
