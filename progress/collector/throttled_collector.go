package collector

import (
	"math/rand"
	"sync"
	"time"

	"github.com/opportuna/analysis-tracker/progress"
)

// ThrottledCollector is a collector with throttling for high-frequency
// producers.
//
// It prevents overwhelming the progress reporting system by:
//   - Throttling updates to a configured interval (default 500ms)
//   - Always forwarding the first state, phase changes and terminal states
//   - Dropping intermediate states that occur too frequently
//
// This collector is ideal when the producer emits faster than reporters can
// usefully render, such as a simulator running on a short tick for demos.
//
// The collector is safe for concurrent use and can be reused across
// sessions after the hub unsubscribes it.
//
// Example usage:
//
//	throttled := collector.NewThrottledCollector(progress.SourceSimulator)
//	prog, _ := progress.New(
//	    progress.WithCollectors(throttled),
//	    progress.WithReporters(reporter.NewTextReporter(os.Stderr)),
//	)
//
//	// Report progress at any rate - automatically throttled
//	throttled.Report(progress.State{Percent: 40})
type ThrottledCollector struct {
	// source is the default source tag for states that arrive without one.
	source progress.Source

	// Throttling configuration and state
	throttleInterval time.Duration
	lastReportTime   time.Time
	lastPhase        progress.Phase
	reportMutex      sync.Mutex

	streamChan chan progress.State
	id         int
}

// ID returns the unique identifier for this collector.
func (t *ThrottledCollector) ID() int {
	return t.id
}

// NewThrottledCollector creates a new throttled collector with the default
// 500ms interval.
//
// Parameters:
//   - source: default source tag for states (e.g., SourcePoller)
//
// The collector will automatically:
//   - Forward the first state it sees
//   - Forward any state that changes phase
//   - Forward terminal states
//   - Throttle everything else to once per 500ms
//
// States are forwarded to a buffered channel (capacity 100) that Progress
// subscribes to.
func NewThrottledCollector(source progress.Source) *ThrottledCollector {
	return &ThrottledCollector{
		source:           source,
		throttleInterval: 500 * time.Millisecond,
		id:               rand.Int(),
		streamChan:       make(chan progress.State, 100),
	}
}

// NewThrottledCollectorWithInterval creates a throttled collector with a
// custom throttle interval.
//
// Use this when you need finer control over the throttling rate. For
// example, a 100ms interval for more frequent updates or 1s for fewer.
func NewThrottledCollectorWithInterval(source progress.Source, interval time.Duration) *ThrottledCollector {
	return &ThrottledCollector{
		source:           source,
		throttleInterval: interval,
		id:               rand.Int(),
		streamChan:       make(chan progress.State, 100),
	}
}

// Report accepts a progress state and forwards it based on throttling rules.
//
// The state will be forwarded if:
//   - It's the first state seen by this collector
//   - It enters a new phase
//   - It's terminal or at 100 percent
//   - throttleInterval has elapsed since the last forwarded state
//
// Otherwise the state is dropped to prevent overwhelming the reporting
// system.
//
// If the state's Source is empty, it is set to the collector's default
// source. The state is sent via a non-blocking channel send - if the buffer
// is full, the state is dropped.
//
// This method is safe for concurrent use.
func (t *ThrottledCollector) Report(state progress.State) {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed during send, ignore the panic
			// This can happen during shutdown
		}
	}()

	// If source is not set, use the default
	if state.Source == "" {
		state.Source = t.source
	}

	t.reportMutex.Lock()
	now := time.Now()
	timeSinceLastReport := now.Sub(t.lastReportTime)

	// Determine if we should report based on throttling rules
	isFirstState := t.lastReportTime.IsZero()
	isTerminal := state.Terminal || state.Percent >= 100
	phaseChanged := state.Phase != "" && state.Phase != t.lastPhase
	intervalElapsed := timeSinceLastReport >= t.throttleInterval

	shouldReport := isFirstState || isTerminal || phaseChanged || intervalElapsed

	if shouldReport {
		t.lastReportTime = now
		t.lastPhase = state.Phase
		t.reportMutex.Unlock()
		select {
		case t.streamChan <- state:
			// State sent successfully
		default:
			// Channel full or closed, drop the state
		}
	} else {
		t.reportMutex.Unlock()
	}
}

// CollectChannel returns the channel that Progress reads states from.
//
// Progress subscribes to this channel to receive throttled states from the
// collector.
func (t *ThrottledCollector) CollectChannel() chan progress.State {
	return t.streamChan
}
