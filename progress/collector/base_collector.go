package collector

import (
	"math/rand"

	"github.com/opportuna/analysis-tracker/progress"
)

// collector is a simple pass-through collector that forwards all states.
//
// This is the base collector implementation without any throttling or
// filtering. It accepts states via Report() and makes them available
// through a buffered channel for Progress to subscribe to.
//
// Unlike ThrottledCollector, this collector forwards every state without
// any rate limiting. Use this when you want all states delivered or when
// the producer already controls its own rate, as the coordinator does.
type collector struct {
	id int
	ch chan progress.State
}

// New creates a new base collector.
//
// The collector has a buffered channel (capacity 100) to prevent blocking
// the producer. States are dropped if the buffer is full.
//
// Example:
//
//	col := collector.New()
//	prog, _ := progress.New(
//	    progress.WithCollectors(col),
//	)
//	col.Report(progress.State{Phase: progress.PhaseInitialization})
func New() progress.Collector {
	return &collector{
		id: rand.Int(),
		ch: make(chan progress.State, 100),
	}
}

// ID returns the unique identifier for this collector.
func (c *collector) ID() int {
	return c.id
}

// CollectChannel returns the channel that Progress reads states from.
func (c *collector) CollectChannel() chan progress.State {
	return c.ch
}

// Report accepts a state and forwards it to the collection channel.
//
// This method uses a non-blocking send. If the channel is full or closed,
// the state is dropped to prevent blocking the caller. A panic recovery
// handler catches any issues from concurrent channel closure.
func (c *collector) Report(state progress.State) {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed during send, ignore the panic
			// This can happen during shutdown
		}
	}()
	select {
	case c.ch <- state:
		// State sent successfully
	default:
		// Channel full or closed, drop the state
	}
}
