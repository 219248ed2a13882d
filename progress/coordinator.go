package progress

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/attribute"

	"github.com/opportuna/analysis-tracker/tracing"
)

// coordState tracks where the coordinator is in its lifecycle. The machine
// only moves forward: idle, then polling or simulating, then terminal. Once
// simulating it never returns to polling.
type coordState int

const (
	stateIdle coordState = iota
	statePolling
	stateSimulating
	stateTerminal
)

const (
	defaultGraceWindow      = 5 * time.Second
	defaultFailureThreshold = 2
)

// sourceSample carries one update or error from an active source into the
// coordinator loop, tagged with the source that produced it so deliveries
// from an already-stopped source can be discarded.
type sourceSample struct {
	src   Source
	state State
	err   error
}

type controlMsg struct {
	result interface{}
	err    error
}

// Coordinator mediates between the authoritative poller and the local
// simulator so callers see one coherent progress stream. It owns at most one
// active source at any instant: it starts with the poller when a fetcher is
// configured, falls back to the simulator when the backend goes quiet or
// keeps failing, and never switches back. The emitted stream never decreases
// in percentage and contains exactly one terminal state.
type Coordinator struct {
	session Session
	model   *PhaseModel
	fetcher Fetcher
	log     logr.Logger

	pollInterval      time.Duration
	simulatorInterval time.Duration
	graceWindow       time.Duration
	failureThreshold  int
	simulatorSeed     int64

	onProgress func(State)
	onComplete func(interface{})
	onError    func(error)

	samples chan sourceSample
	control chan controlMsg

	// emission bookkeeping, owned by Start and then the run loop
	lastPercent  int
	lastPhase    Phase
	lastVelocity float64
	lastEmitAt   time.Time

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(c *Coordinator)

// WithPhaseModel sets the phase model used to annotate and simulate
// progress. Defaults to DefaultModel.
func WithPhaseModel(model *PhaseModel) CoordinatorOption {
	return func(c *Coordinator) {
		c.model = model
	}
}

// WithFetcher sets the authoritative progress source. Without one the
// coordinator goes straight to simulation, which is how demos run.
func WithFetcher(fetcher Fetcher) CoordinatorOption {
	return func(c *Coordinator) {
		c.fetcher = fetcher
	}
}

// WithPollInterval sets the poller cadence.
func WithPollInterval(interval time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.pollInterval = interval
	}
}

// WithSimulatorInterval sets the fallback simulator cadence.
func WithSimulatorInterval(interval time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.simulatorInterval = interval
	}
}

// WithSimulatorSeed fixes the simulator's jitter for reproducible runs.
func WithSimulatorSeed(seed int64) CoordinatorOption {
	return func(c *Coordinator) {
		c.simulatorSeed = seed
	}
}

// WithGraceWindow sets how long the coordinator waits for a first
// authoritative update before falling back to simulation. Measured from
// Start, not from the last update. Defaults to five seconds.
func WithGraceWindow(window time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.graceWindow = window
	}
}

// WithFailureThreshold sets how many consecutive poll failures trigger the
// fallback to simulation. Defaults to two.
func WithFailureThreshold(threshold int) CoordinatorOption {
	return func(c *Coordinator) {
		c.failureThreshold = threshold
	}
}

// WithOnProgress sets the callback invoked for every emitted state.
func WithOnProgress(fn func(State)) CoordinatorOption {
	return func(c *Coordinator) {
		c.onProgress = fn
	}
}

// WithOnComplete sets the callback invoked once when the session completes.
// It receives the result handed to Complete, or nil when a source reported
// completion on its own.
func WithOnComplete(fn func(interface{})) CoordinatorOption {
	return func(c *Coordinator) {
		c.onComplete = fn
	}
}

// WithOnError sets the callback invoked once when the session fails.
func WithOnError(fn func(error)) CoordinatorOption {
	return func(c *Coordinator) {
		c.onError = fn
	}
}

// NewCoordinator creates a coordinator for the session.
func NewCoordinator(session Session, log logr.Logger, opts ...CoordinatorOption) (*Coordinator, error) {
	if session.ID == "" {
		return nil, errors.New("session id is required")
	}
	c := &Coordinator{
		session:          session,
		log:              log,
		graceWindow:      defaultGraceWindow,
		failureThreshold: defaultFailureThreshold,
		samples:          make(chan sourceSample, 64),
		control:          make(chan controlMsg, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.model == nil {
		c.model = DefaultModel()
	}
	if c.graceWindow <= 0 {
		c.graceWindow = defaultGraceWindow
	}
	if c.failureThreshold < 1 {
		c.failureThreshold = defaultFailureThreshold
	}
	return c, nil
}

// Start begins tracking. A synthetic connection state for the first phase at
// zero percent is delivered before Start returns, then updates flow from the
// active source until a terminal state. Start returns ErrAlreadyStarted on
// reuse.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.emit(c.connectedState())

	go c.run(runCtx)
	return nil
}

// emit clamps a state against the last emitted percentage, derives velocity,
// normalizes, and hands the result to the progress callback. Start calls it
// once synchronously; afterwards only the run loop does.
func (c *Coordinator) emit(st State) {
	if st.Percent < c.lastPercent {
		st.Percent = c.lastPercent
	}
	now := time.Now()
	if !c.lastEmitAt.IsZero() {
		if dt := now.Sub(c.lastEmitAt).Seconds(); dt > 0 {
			c.lastVelocity = float64(st.Percent-c.lastPercent) / dt
		}
	}
	st.Velocity = c.lastVelocity
	st = normalize(st)
	c.lastPercent = st.Percent
	c.lastPhase = st.Phase
	c.lastEmitAt = now
	if c.onProgress != nil {
		c.onProgress(st)
	}
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)

	ctx, span := tracing.StartNewSpan(ctx, "progress-session",
		attribute.String("session_id", c.session.ID))
	defer span.End()

	var (
		state     = stateIdle
		poller    *Poller
		simulator *Simulator
		failures  int
		sawRemote bool
	)

	// Source callbacks only push into the sample channel and never block,
	// so stopping a source from inside the loop cannot deadlock.
	onSample := func(src Source) func(State) {
		return func(st State) {
			select {
			case c.samples <- sourceSample{src: src, state: st}:
			default:
			}
		}
	}
	onSourceError := func(src Source) func(error) {
		return func(err error) {
			select {
			case c.samples <- sourceSample{src: src, err: err}:
			default:
			}
		}
	}

	stopActive := func() {
		if poller != nil {
			poller.Stop()
			poller = nil
		}
		if simulator != nil {
			simulator.Stop()
			simulator = nil
		}
	}

	startSimulator := func() {
		simulator = NewSimulator(c.model, SimulatorConfig{
			Interval:     c.simulatorInterval,
			StartPercent: c.lastPercent,
			Seed:         c.simulatorSeed,
			Log:          c.log,
		})
		simulator.Start(ctx, c.session, onSample(SourceSimulator), nil)
		state = stateSimulating
	}

	if c.fetcher != nil {
		poller = NewPoller(c.fetcher, c.model, c.pollInterval, c.log)
		poller.Start(ctx, c.session.ID, onSample(SourcePoller), onSourceError(SourcePoller))
		state = statePolling
	} else {
		startSimulator()
	}

	grace := time.NewTimer(c.graceWindow)
	defer grace.Stop()

	active := func() Source {
		if state == stateSimulating {
			return SourceSimulator
		}
		return SourcePoller
	}

	finish := func(st State, result interface{}, failErr error) {
		stopActive()
		state = stateTerminal
		st.Terminal = true
		c.emit(st)
		if failErr != nil {
			if c.onError != nil {
				c.onError(failErr)
			}
			return
		}
		if c.onComplete != nil {
			c.onComplete(result)
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopActive()
			return

		case <-grace.C:
			if state == statePolling && !sawRemote {
				c.log.V(5).Info("no authoritative progress inside grace window, switching to simulation",
					"session", c.session.ID, "window", c.graceWindow)
				stopActive()
				startSimulator()
			}

		case msg := <-c.control:
			if msg.err != nil {
				finish(c.failureState(msg.err), nil, msg.err)
			} else {
				finish(c.completedState(), msg.result, nil)
			}
			return

		case s := <-c.samples:
			if s.src != active() {
				continue
			}
			if s.err != nil {
				failures++
				c.log.V(7).Info("progress poll failed",
					"session", c.session.ID, "consecutive", failures, "error", s.err)
				if state == statePolling && failures >= c.failureThreshold {
					c.log.V(5).Info("progress endpoint keeps failing, switching to simulation",
						"session", c.session.ID, "failures", failures)
					stopActive()
					startSimulator()
				}
				continue
			}
			if s.src == SourcePoller {
				sawRemote = true
				failures = 0
			}
			st := s.state
			if st.Failed {
				err := errors.New("analysis failed")
				if st.Error != "" {
					err = errors.New(st.Error)
				}
				finish(st, nil, err)
				return
			}
			if st.Terminal || st.Percent >= 100 {
				st.Percent = 100
				st.Phase = PhaseCompleted
				st.PhaseIndex = c.model.Len() - 1
				finish(st, nil, nil)
				return
			}
			c.emit(st)
		}
	}
}

func (c *Coordinator) connectedState() State {
	def := c.model.PhaseForPercent(0)
	return State{
		SessionID:   c.session.ID,
		Phase:       def.Name,
		PhaseIndex:  0,
		TotalPhases: c.model.Len(),
		Percent:     0,
		Step:        def.Title,
		Message:     def.RenderTask(c.session),
		Source:      SourceCoordinator,
	}
}

func (c *Coordinator) completedState() State {
	return State{
		SessionID:      c.session.ID,
		Phase:          PhaseCompleted,
		PhaseIndex:     c.model.Len() - 1,
		TotalPhases:    c.model.Len(),
		Percent:        100,
		Step:           "Completed",
		Message:        "Analysis complete",
		ElapsedSeconds: c.session.Elapsed().Seconds(),
		Source:         SourceCoordinator,
	}
}

func (c *Coordinator) failureState(err error) State {
	idx := c.model.PhaseIndex(c.lastPhase)
	if idx < 0 {
		idx = 0
	}
	return State{
		SessionID:      c.session.ID,
		Phase:          c.lastPhase,
		PhaseIndex:     idx,
		TotalPhases:    c.model.Len(),
		Percent:        c.lastPercent,
		Step:           "Failed",
		Message:        "Analysis failed",
		ElapsedSeconds: c.session.Elapsed().Seconds(),
		Source:         SourceCoordinator,
		Failed:         true,
		Error:          err.Error(),
	}
}

// Complete asks the coordinator to finish the session successfully, jumping
// progress to 100. The result is handed through to the OnComplete callback.
// Callers use it when the synchronous report request returns before the
// polled progress reaches 100.
func (c *Coordinator) Complete(result interface{}) {
	c.sendControl(controlMsg{result: result})
}

// Fail asks the coordinator to finish the session with a terminal failure.
func (c *Coordinator) Fail(err error) {
	if err == nil {
		err = errors.New("analysis failed")
	}
	c.sendControl(controlMsg{err: err})
}

func (c *Coordinator) sendControl(msg controlMsg) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		select {
		case c.control <- msg:
		default:
		}
		return
	}
	select {
	case c.control <- msg:
	case <-done:
	}
}

// Stop halts tracking without emitting a terminal state. It is idempotent
// and safe from any goroutine; once it returns no further callbacks fire.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
