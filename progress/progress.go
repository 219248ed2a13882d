package progress

import (
	"context"
	"sync"
)

// Progress coordinates the flow of progress states between collectors and
// reporters.
//
// Progress acts as the central hub for progress reporting, managing the
// lifecycle of state collection and distribution. It receives states from
// multiple collectors (which gather progress from coordinators or other
// producers) and distributes them to multiple reporters (which render
// progress in different formats).
//
// Architecture:
//   - Collectors send states via channels that Progress subscribes to
//   - Progress multiplexes states from all collectors into a central channel
//   - States are then fanned out to all registered reporters
//   - Each reporter runs in its own goroutine with a buffered channel
//
// Lifecycle:
//  1. Create with New() and options (WithContext, WithReporters, WithCollectors)
//  2. Progress automatically subscribes to collectors and starts reporter workers
//  3. States flow: Collector -> Progress.collectorChan -> Reporter channels -> Reporters
//  4. Cleanup via context cancellation stops all goroutines
//
// Example:
//
//	ctx := context.Background()
//	textReporter := reporter.NewTextReporter(os.Stderr)
//	pollerCollector := collector.NewThrottledCollector(progress.SourcePoller)
//
//	prog, err := progress.New(
//	    progress.WithContext(ctx),
//	    progress.WithReporters(textReporter),
//	    progress.WithCollectors(pollerCollector),
//	)
//
//	// States sent to collectors automatically flow to reporters
//	pollerCollector.Report(progress.State{
//	    Phase:   progress.PhaseCompetitorAnalysis,
//	    Percent: 20,
//	})
//
// Thread Safety:
// Progress is safe for concurrent use. Multiple collectors can send states
// simultaneously, and all reporters receive states concurrently.
type Progress struct {
	ctx                context.Context
	reporters          []Reporter
	reporterChannels   []chan State
	collectors         []Collector
	collectorChan      chan State
	collectorCancelMap map[int]context.CancelFunc
	subscribeMutex     sync.Mutex
}

// ProgressOption configures a Progress instance during creation.
type ProgressOption func(p *Progress)

// WithContext sets the context for the Progress instance.
//
// The context controls the lifecycle of all background goroutines. When it
// is cancelled, all reporters and collector subscriptions stop processing
// states.
func WithContext(ctx context.Context) ProgressOption {
	return func(p *Progress) {
		p.ctx = ctx
	}
}

// WithReporters adds one or more reporters to the Progress instance.
//
// Reporters receive states and render them in various formats (text, JSON,
// progress bar). Multiple reporters can be active simultaneously, each
// receiving all states.
//
// Example:
//
//	progress.New(
//	    progress.WithReporters(
//	        reporter.NewTextReporter(os.Stderr),
//	        reporter.NewJSONReporter(logFile),
//	    ),
//	)
func WithReporters(reporters ...Reporter) ProgressOption {
	return func(p *Progress) {
		p.reporters = append(p.reporters, reporters...)
	}
}

// WithCollectors adds one or more collectors to the Progress instance.
//
// Collectors gather progress states from producers and send them to Progress
// for distribution to reporters. Progress automatically subscribes to all
// collectors during initialization.
func WithCollectors(collectors ...Collector) ProgressOption {
	return func(p *Progress) {
		p.collectors = append(p.collectors, collectors...)
	}
}

// New creates a new Progress instance with the provided options.
//
// If no reporters are specified, a NoopReporter is used by default so that
// disabled progress reporting carries no overhead. If no context is
// provided, the Progress runs until explicitly cancelled.
//
// The function starts background goroutines for:
//   - Multiplexing collector states to reporter channels
//   - Running each reporter worker
//   - Subscribing to each collector's channel
func New(opts ...ProgressOption) (*Progress, error) {
	pg := &Progress{
		collectorChan:      make(chan State, 100),
		collectorCancelMap: map[int]context.CancelFunc{},
		subscribeMutex:     sync.Mutex{},
	}
	for _, opt := range opts {
		opt(pg)
	}
	if pg.ctx == nil {
		pg.ctx = context.Background()
	}

	if len(pg.reporters) == 0 {
		// No reporters, will create a no-op reporter
		pg.reporters = append(pg.reporters, &NoopReporter{})
	}

	for _, reporter := range pg.reporters {
		reporterChannel := make(chan State, 100)
		pg.reporterChannels = append(pg.reporterChannels, reporterChannel)
		go pg.reporterWorker(reporter, reporterChannel)
	}

	go func() {
		for {
			select {
			case state := <-pg.collectorChan:
				for _, ch := range pg.reporterChannels {
					ch <- state
				}
			case <-pg.ctx.Done():
				return
			}
		}
	}()

	for _, collector := range pg.collectors {
		pg.Subscribe(collector)
	}

	return pg, nil
}

// Unsubscribe stops receiving states from the specified collector.
//
// This cancels the goroutine listening to the collector's channel. States
// already in flight may still be processed. Unsubscribing a collector that
// was never subscribed is a no-op.
func (p *Progress) Unsubscribe(collector Collector) {
	p.subscribeMutex.Lock()
	subscribeCancel, ok := p.collectorCancelMap[collector.ID()]
	if ok {
		delete(p.collectorCancelMap, collector.ID())
	}
	p.subscribeMutex.Unlock()
	if subscribeCancel != nil {
		subscribeCancel()
	}
}

// Subscribe starts receiving states from the specified collector.
//
// This starts a goroutine that reads from the collector's channel and
// forwards states to Progress's central collector channel. The goroutine
// continues until either the Progress context is cancelled or Unsubscribe
// is called.
func (p *Progress) Subscribe(collector Collector) {
	subscribeContext, subscribeCancel := context.WithCancel(p.ctx)
	p.subscribeMutex.Lock()
	p.collectorCancelMap[collector.ID()] = subscribeCancel
	p.subscribeMutex.Unlock()

	go func() {
		for {
			select {
			case state := <-collector.CollectChannel():
				p.collectorChan <- state
			case <-subscribeContext.Done():
				return
			}
		}
	}()
}

// reporterWorker runs in a goroutine, forwarding states to a reporter.
//
// Each reporter has its own worker goroutine and buffered channel so a slow
// reporter cannot block state collection. The worker stops when the Progress
// context is cancelled.
func (p *Progress) reporterWorker(reporter Reporter, states chan State) {
	for {
		select {
		case state := <-states:
			reporter.Report(state)
		case <-p.ctx.Done():
			return
		}
	}
}
