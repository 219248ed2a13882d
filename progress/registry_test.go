package progress

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
)

func registryCoordinator(t *testing.T, id string) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(Session{
		ID:        id,
		Company:   "Acme Corp",
		Sector:    "retail",
		Service:   "pricing analytics",
		StartedAt: time.Now(),
	}, logr.Discard(), WithSimulatorInterval(time.Hour))
	if err != nil {
		t.Fatalf("Unable to create coordinator: %v", err)
	}
	return c
}

func TestRegistry_AddGetRemove(t *testing.T) {
	reg := NewRegistry()

	c := registryCoordinator(t, "analysis_1")
	if err := reg.Add(c); err != nil {
		t.Fatalf("Expected add to succeed: %v", err)
	}
	if reg.Len() != 1 {
		t.Errorf("Expected one tracked session, got %d", reg.Len())
	}

	got, ok := reg.Get("analysis_1")
	if !ok || got != c {
		t.Error("Expected to get the registered coordinator back")
	}

	if _, ok := reg.Get("analysis_2"); ok {
		t.Error("Expected no coordinator for an unknown session")
	}

	reg.Remove("analysis_1")
	if _, ok := reg.Get("analysis_1"); ok {
		t.Error("Expected the session to be forgotten after Remove")
	}
}

func TestRegistry_RejectsDuplicateSession(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Add(registryCoordinator(t, "analysis_1")); err != nil {
		t.Fatalf("Expected add to succeed: %v", err)
	}
	if err := reg.Add(registryCoordinator(t, "analysis_1")); err == nil {
		t.Error("Expected an error when registering the same session twice")
	}
}

func TestRegistry_StopAll(t *testing.T) {
	reg := NewRegistry()

	var emitted int
	c := registryCoordinator(t, "analysis_1")
	c.onProgress = func(State) { emitted++ }
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Expected coordinator to start: %v", err)
	}
	if err := reg.Add(c); err != nil {
		t.Fatalf("Expected add to succeed: %v", err)
	}

	reg.StopAll()
	if reg.Len() != 0 {
		t.Errorf("Expected an empty registry after StopAll, got %d", reg.Len())
	}

	before := emitted
	time.Sleep(20 * time.Millisecond)
	if emitted != before {
		t.Error("Expected no emissions after StopAll")
	}
}
