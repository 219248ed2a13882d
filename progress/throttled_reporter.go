package progress

import (
	"sync"
	"sync/atomic"
	"time"
)

// ThrottledReporter wraps a Reporter with throttling and optional streaming.
//
// It keeps a chatty progress source from overwhelming the reporting system
// by:
//   - Throttling updates to a configured interval (default 500ms)
//   - Always passing the first state, phase changes, and terminal states
//   - Optionally streaming states to a channel for real-time consumers
//
// It's safe for concurrent use.
//
// Example usage:
//
//	baseReporter := reporter.NewTextReporter(os.Stderr)
//	throttled := progress.NewThrottledReporter(progress.SourcePoller, baseReporter)
//
//	// Optional: enable streaming for other consumers
//	stateChan := make(chan progress.State, 100)
//	throttled.EnableStreaming(stateChan)
//
//	// Report progress - automatically throttled
//	throttled.Report(progress.State{
//	    Phase:   progress.PhaseParallelProcessing,
//	    Percent: 40,
//	})
type ThrottledReporter struct {
	// source is the default source tag for states that arrive without one.
	source Source

	// reporter is the underlying reporter that receives throttled states
	reporter Reporter

	// Throttling configuration and state
	throttleInterval time.Duration
	lastReportTime   time.Time
	lastPhase        Phase
	reportMutex      sync.Mutex

	// Optional streaming
	streamEnabled atomic.Bool
	streamChan    chan<- State
	streamMutex   sync.RWMutex
}

// NewThrottledReporter creates a new throttled reporter with the default
// 500ms interval.
//
// Parameters:
//   - source: default source tag for states (e.g., SourcePoller)
//   - reporter: underlying reporter to receive throttled states (can be nil
//     for stream-only mode)
//
// The reporter will automatically pass through:
//   - The first state it sees
//   - Any state that changes phase
//   - Terminal states
//
// and throttle everything else to once per interval.
func NewThrottledReporter(source Source, reporter Reporter) *ThrottledReporter {
	return &ThrottledReporter{
		source:           source,
		reporter:         reporter,
		throttleInterval: 500 * time.Millisecond,
	}
}

// NewThrottledReporterWithInterval creates a throttled reporter with a
// custom throttle interval.
func NewThrottledReporterWithInterval(source Source, reporter Reporter, interval time.Duration) *ThrottledReporter {
	return &ThrottledReporter{
		source:           source,
		reporter:         reporter,
		throttleInterval: interval,
	}
}

// Report sends a progress state through the throttled reporter.
//
// The state will be:
//   - Sent immediately if it's the first state
//   - Sent immediately if it enters a new phase
//   - Sent immediately if it's terminal or at 100 percent
//   - Sent immediately if throttleInterval has elapsed since the last report
//   - Dropped otherwise
//
// If streaming is enabled, the state is also sent to the stream channel
// using a non-blocking send (dropped if the channel is full).
//
// The state is normalized (timestamp set, percent clamped) before delivery.
func (t *ThrottledReporter) Report(state State) {
	state = normalize(state)

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

		// Send to underlying reporter if configured
		if t.reporter != nil {
			t.reporter.Report(state)
		}

		// Send to stream if enabled
		if t.streamEnabled.Load() {
			t.sendToStream(state)
		}
	} else {
		t.reportMutex.Unlock()
	}
}

// EnableStreaming enables state streaming to the provided channel.
//
// States will be sent using non-blocking sends, so a full or closed channel
// will not block progress reporting. Configure the channel with adequate
// buffering for your use case.
func (t *ThrottledReporter) EnableStreaming(ch chan<- State) {
	t.streamMutex.Lock()
	t.streamChan = ch
	t.streamEnabled.Store(true)
	t.streamMutex.Unlock()
}

// DisableStreaming disables state streaming.
// The stream channel will no longer receive states.
func (t *ThrottledReporter) DisableStreaming() {
	t.streamEnabled.Store(false)
	t.streamMutex.Lock()
	t.streamChan = nil
	t.streamMutex.Unlock()
}

// sendToStream sends a state to the stream channel using non-blocking send.
// This ensures we never block progress reporting even if the consumer is slow.
func (t *ThrottledReporter) sendToStream(state State) {
	t.streamMutex.RLock()
	ch := t.streamChan
	t.streamMutex.RUnlock()

	if ch != nil {
		select {
		case ch <- state:
			// State sent successfully
		default:
			// Channel full or closed, drop the state
		}
	}
}

// Reset resets the throttling state.
// This is useful when reusing the reporter for a new session.
func (t *ThrottledReporter) Reset() {
	t.reportMutex.Lock()
	t.lastReportTime = time.Time{}
	t.lastPhase = ""
	t.reportMutex.Unlock()
}
