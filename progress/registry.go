package progress

import (
	"fmt"
	"sync"
)

// Registry tracks the live coordinator for each session so callers running
// several analyses at once can look them up and shut them down together.
// Coordinators own their sessions exclusively; the registry only holds
// references.
type Registry struct {
	mu           sync.Mutex
	coordinators map[string]*Coordinator
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{coordinators: map[string]*Coordinator{}}
}

// Add registers the coordinator under its session id. Adding a second
// coordinator for the same session is an error; the first one must be
// removed or stopped first.
func (r *Registry) Add(c *Coordinator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := c.session.ID
	if _, ok := r.coordinators[id]; ok {
		return fmt.Errorf("session '%s' is already being tracked", id)
	}
	r.coordinators[id] = c
	return nil
}

// Get returns the coordinator tracking the session, if any.
func (r *Registry) Get(sessionID string) (*Coordinator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coordinators[sessionID]
	return c, ok
}

// Remove forgets the session. The coordinator is not stopped.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.coordinators, sessionID)
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.coordinators)
}

// StopAll stops every tracked coordinator and empties the registry. Safe to
// call concurrently with Add/Get/Remove; coordinators stopped here may still
// be mid-tick but will emit nothing after their Stop returns.
func (r *Registry) StopAll() {
	r.mu.Lock()
	coordinators := make([]*Coordinator, 0, len(r.coordinators))
	for _, c := range r.coordinators {
		coordinators = append(coordinators, c)
	}
	r.coordinators = map[string]*Coordinator{}
	r.mu.Unlock()

	for _, c := range coordinators {
		c.Stop()
	}
}
