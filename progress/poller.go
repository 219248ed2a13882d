package progress

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// ErrAlreadyStarted is returned when a progress source is started twice.
var ErrAlreadyStarted = errors.New("progress source already started")

const defaultPollInterval = 2 * time.Second

// Fetcher retrieves the authoritative progress state for a session. The
// backend HTTP client implements it.
type Fetcher interface {
	FetchProgress(ctx context.Context, sessionID string) (State, error)
}

// Poller periodically fetches authoritative progress from the backend and
// hands each result to its callbacks. It keeps polling through failures; the
// caller decides when repeated failures warrant giving up on it.
type Poller struct {
	fetcher  Fetcher
	model    *PhaseModel
	interval time.Duration
	log      logr.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPoller creates a poller for the given fetcher. A nil model falls back
// to DefaultModel and a non-positive interval to two seconds.
func NewPoller(fetcher Fetcher, model *PhaseModel, interval time.Duration, log logr.Logger) *Poller {
	if model == nil {
		model = DefaultModel()
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		fetcher:  fetcher,
		model:    model,
		interval: interval,
		log:      log,
	}
}

// Start begins polling for the session. The first fetch happens immediately,
// then one per interval. onUpdate receives each successful state and onError
// each failure; errors do not stop the poller. Start returns
// ErrAlreadyStarted on reuse.
func (p *Poller) Start(ctx context.Context, sessionID string, onUpdate func(State), onError func(error)) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.started = true
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.mu.Unlock()

	go func() {
		defer close(p.done)
		p.poll(runCtx, sessionID, onUpdate, onError)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				p.poll(runCtx, sessionID, onUpdate, onError)
			}
		}
	}()
	return nil
}

func (p *Poller) poll(ctx context.Context, sessionID string, onUpdate func(State), onError func(error)) {
	state, err := p.fetcher.FetchProgress(ctx, sessionID)
	if p.isStopped() || ctx.Err() != nil {
		return
	}
	if err != nil {
		p.log.V(7).Info("unable to fetch remote progress", "session", sessionID, "error", err)
		if onError != nil {
			onError(err)
		}
		return
	}
	if onUpdate != nil {
		onUpdate(p.normalizeState(state, sessionID))
	}
}

// normalizeState maps the remote payload onto the local phase model. Unknown
// phase names are resolved from the reported percentage.
func (p *Poller) normalizeState(st State, sessionID string) State {
	st.Source = SourcePoller
	if st.SessionID == "" {
		st.SessionID = sessionID
	}
	st.TotalPhases = p.model.Len()
	if st.Phase == PhaseCompleted {
		st.PhaseIndex = p.model.Len() - 1
		return st
	}
	if idx := p.model.PhaseIndex(st.Phase); idx >= 0 {
		st.PhaseIndex = idx
		return st
	}
	def := p.model.PhaseForPercent(st.Percent)
	st.Phase = def.Name
	st.PhaseIndex = p.model.PhaseIndex(def.Name)
	return st
}

func (p *Poller) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// Stop halts polling. It is idempotent, and once it returns no further
// callbacks will be invoked.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.stopped = true
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
