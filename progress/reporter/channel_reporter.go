package reporter

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/opportuna/analysis-tracker/progress"
)

// ChannelReporter sends progress states to a Go channel for programmatic
// consumption.
//
// ChannelReporter provides a bridge between the progress reporting system
// and Go applications that need to consume states programmatically. This is
// ideal for:
//   - Building custom UIs (web dashboards, GUIs)
//   - Real-time monitoring applications
//   - Testing and validation
//   - Integration with other event processing systems
//
// The reporter uses a buffered channel with non-blocking sends to ensure
// that slow consumers never impact the tracked session. If the consumer
// can't keep up, states are dropped and counted (available via
// DroppedStates()).
//
// Lifecycle management is handled via context - the channel automatically
// closes when the context is cancelled, making it easy to integrate with
// typical Go application shutdown patterns.
//
// Thread Safety:
// This reporter is safe for concurrent use. Multiple goroutines can call
// Report() simultaneously without coordination.
//
// Example:
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	reporter := reporter.NewChannelReporter(ctx)
//
//	// Start consuming states in a goroutine
//	go func() {
//	    for state := range reporter.States() {
//	        fmt.Printf("Progress: %d%% - %s\n", state.Percent, state.Message)
//	    }
//	    fmt.Println("Progress reporting complete")
//	}()
//
//	// Use reporter with Progress
//	prog, _ := progress.New(
//	    progress.WithContext(ctx),
//	    progress.WithReporters(reporter),
//	)
type ChannelReporter struct {
	states        chan progress.State
	mu            sync.RWMutex
	closed        bool
	droppedStates atomic.Uint64
	log           logr.Logger
}

// ChannelReporterOption is a function that configures a ChannelReporter.
type ChannelReporterOption func(*ChannelReporter)

// WithLogger sets a logger for the ChannelReporter to log dropped states.
//
// When the channel buffer fills up (consumer too slow), states are dropped.
// With a logger configured, each drop is logged at V(1) level with details
// about the state and cumulative drop count.
func WithLogger(log logr.Logger) ChannelReporterOption {
	return func(r *ChannelReporter) {
		r.log = log
	}
}

// NewChannelReporter creates a new channel-based progress reporter.
//
// The reporter uses a buffered channel (capacity 100) to prevent blocking
// the session. If the consumer is slow and the buffer fills up, states will
// be dropped rather than blocking. Track drops via DroppedStates().
//
// The reporter automatically closes its channel when the provided context is
// cancelled. This ensures proper cleanup and allows consumers to detect
// completion by ranging over the States() channel.
//
// Optional: Pass WithLogger to log when states are dropped due to
// backpressure.
func NewChannelReporter(ctx context.Context, opts ...ChannelReporterOption) *ChannelReporter {
	r := &ChannelReporter{
		states: make(chan progress.State, 100), // Buffered to prevent blocking
		log:    logr.Discard(),                 // Default to discard logger
	}

	// Apply options
	for _, opt := range opts {
		opt(r)
	}

	// Monitor context and close when cancelled
	go func() {
		<-ctx.Done()
		r.mu.Lock()
		close(r.states)
		r.closed = true
		r.mu.Unlock()
	}()

	return r
}

// Report sends a progress state to the channel.
//
// This method uses a non-blocking send to prevent impacting the tracked
// session. If the channel buffer is full (consumer not keeping up), the
// state is dropped and the drop counter is incremented.
//
// If the reporter has been closed (context cancelled), this method returns
// immediately without panicking, ensuring safe concurrent usage during
// shutdown.
//
// This method is safe for concurrent use.
func (c *ChannelReporter) Report(state progress.State) {
	// Normalize state (set timestamp, clamp percent)
	normalize(&state)

	// Hold read lock during the entire send operation to prevent the closer
	// from closing the channel while we're sending
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return
	}

	// Non-blocking send
	select {
	case c.states <- state:
		// State sent successfully
	default:
		// Channel is full, skip this state to avoid blocking the session
		dropped := c.droppedStates.Add(1)
		c.log.V(1).Info("progress state dropped due to slow consumer",
			"phase", state.Phase,
			"percent", state.Percent,
			"total_dropped", dropped,
		)
	}
}

// States returns the read-only channel for receiving progress states.
//
// Consumers should range over this channel to process states. The channel
// will be closed when the context provided to NewChannelReporter is
// cancelled, allowing the range loop to exit cleanly.
//
// Example:
//
//	for state := range reporter.States() {
//	    if state.Terminal {
//	        showCompletionMessage()
//	        continue
//	    }
//	    updateProgressBar(state.Percent)
//	}
//
// The channel has a buffer of 100 states. If consumption is slower than
// production, states will be dropped (see DroppedStates()).
func (c *ChannelReporter) States() <-chan progress.State {
	return c.states
}

// DroppedStates returns the number of states that were dropped due to the
// channel buffer being full.
//
// A non-zero value indicates that the consumer isn't keeping up. Consider:
//   - Optimizing the consumer to process states faster
//   - Reducing the reporting frequency (use ThrottledCollector)
//   - Increasing the buffer size (requires modifying NewChannelReporter)
func (c *ChannelReporter) DroppedStates() uint64 {
	return c.droppedStates.Load()
}
