package progress

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

const (
	defaultSimulatorInterval = 1500 * time.Millisecond
	defaultMinStep           = 1
	defaultMaxStep           = 4
)

// SimulatorConfig tunes a Simulator. Zero values fall back to defaults.
type SimulatorConfig struct {
	// Interval is the tick cadence.
	Interval time.Duration

	// MinStep and MaxStep bound how many percentage points one tick may
	// add.
	MinStep int
	MaxStep int

	// StartPercent is where the simulation picks up, typically the last
	// value an authoritative source reported before it went away.
	StartPercent int

	// Seed fixes the random jitter for reproducible runs. Zero seeds from
	// the clock.
	Seed int64

	Log logr.Logger
}

// Simulator produces a plausible local progress trajectory when the backend
// cannot be polled. Each tick advances a bounded random amount paced by the
// phase model's estimated durations, so long phases crawl and short phases
// jump. The simulation always reaches 100 and reports completion itself.
type Simulator struct {
	model    *PhaseModel
	interval time.Duration
	minStep  int
	maxStep  int
	start    int
	rng      *rand.Rand
	log      logr.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSimulator creates a simulator over the given phase model. A nil model
// falls back to DefaultModel.
func NewSimulator(model *PhaseModel, cfg SimulatorConfig) *Simulator {
	if model == nil {
		model = DefaultModel()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultSimulatorInterval
	}
	if cfg.MinStep <= 0 {
		cfg.MinStep = defaultMinStep
	}
	if cfg.MaxStep < cfg.MinStep {
		cfg.MaxStep = defaultMaxStep
	}
	if cfg.StartPercent < 0 {
		cfg.StartPercent = 0
	}
	if cfg.StartPercent > 100 {
		cfg.StartPercent = 100
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Simulator{
		model:    model,
		interval: cfg.Interval,
		minStep:  cfg.MinStep,
		maxStep:  cfg.MaxStep,
		start:    cfg.StartPercent,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		log:      cfg.Log,
	}
}

// Start begins emitting simulated states for the session. onUpdate receives
// every tick including the terminal one; onComplete fires exactly once when
// the simulation reaches 100, after which the simulator stops itself. Start
// returns ErrAlreadyStarted on reuse.
func (s *Simulator) Start(ctx context.Context, session Session, onUpdate func(State), onComplete func()) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.run(runCtx, session, onUpdate, onComplete)
	return nil
}

func (s *Simulator) run(ctx context.Context, session Session, onUpdate func(State), onComplete func()) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	percent := s.start
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			percent = s.advance(percent)
			state := s.stateFor(session, percent)
			if s.isStopped() || ctx.Err() != nil {
				return
			}
			if onUpdate != nil {
				onUpdate(state)
			}
			if percent >= 100 {
				if onComplete != nil {
					onComplete()
				}
				return
			}
		}
	}
}

// advance returns the next percentage. The step size follows the current
// phase's pace (phase span divided by its estimated duration) with random
// jitter, clamped into [minStep, maxStep].
func (s *Simulator) advance(percent int) int {
	def := s.model.PhaseForPercent(percent + 1)
	idx := s.model.PhaseIndex(def.Name)
	span := def.Ceiling - s.model.floor(idx)
	velocity := float64(span) / def.EstimatedDuration.Seconds()
	jitter := 0.5 + s.rng.Float64()
	step := int(math.Round(velocity * s.interval.Seconds() * jitter))
	if step < s.minStep {
		step = s.minStep
	}
	if step > s.maxStep {
		step = s.maxStep
	}
	percent += step
	if percent > 100 {
		percent = 100
	}
	return percent
}

func (s *Simulator) stateFor(session Session, percent int) State {
	st := State{
		SessionID:      session.ID,
		Percent:        percent,
		ElapsedSeconds: session.Elapsed().Seconds(),
		TotalPhases:    s.model.Len(),
		Source:         SourceSimulator,
	}
	if percent >= 100 {
		st.Phase = PhaseCompleted
		st.PhaseIndex = s.model.Len() - 1
		st.Step = "Completed"
		st.Message = "Analysis complete"
		st.Terminal = true
		return st
	}
	def := s.model.PhaseForPercent(percent)
	st.Phase = def.Name
	st.PhaseIndex = s.model.PhaseIndex(def.Name)
	st.Step = def.Title
	st.Message = def.RenderTask(session)
	return st
}

func (s *Simulator) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Stop halts the simulation. It is idempotent, and once it returns no
// further callbacks will be invoked.
func (s *Simulator) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
