package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func next(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("connectivity channel closed unexpectedly")
		}
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for connectivity value")
	}
	return false
}

func expectNothing(t *testing.T, ch <-chan bool) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected connectivity value %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMonitor_SeedThenTransitions(t *testing.T) {
	m := NewMonitor(false)
	defer m.Close()

	ch := m.Subscribe(context.Background())
	if next(t, ch) {
		t.Fatal("seed value = true, want false")
	}

	if !m.Set(true) {
		t.Error("Set(true) should report a transition")
	}
	if !next(t, ch) {
		t.Error("transition value = false, want true")
	}

	if !m.Set(false) {
		t.Error("Set(false) should report a transition")
	}
	if next(t, ch) {
		t.Error("transition value = true, want false")
	}
}

func TestMonitor_CoalescesRedundantReports(t *testing.T) {
	m := NewMonitor(true)
	defer m.Close()

	ch := m.Subscribe(context.Background())
	next(t, ch)

	if m.Set(true) {
		t.Error("Set(true) on a connected monitor should not report a transition")
	}
	expectNothing(t, ch)

	if !m.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
}

func TestMonitor_IndependentSubscribers(t *testing.T) {
	m := NewMonitor(true)
	defer m.Close()

	a := m.Subscribe(context.Background())
	next(t, a)

	m.Set(false)

	// b joins after the transition and is seeded with the new state
	b := m.Subscribe(context.Background())
	if next(t, b) {
		t.Error("late subscriber seed = true, want false")
	}
	if next(t, a) {
		t.Error("early subscriber transition = true, want false")
	}
}

func TestMonitor_CloseEndsStreams(t *testing.T) {
	m := NewMonitor(true)
	ch := m.Subscribe(context.Background())
	next(t, ch)

	m.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after Close")
	}
}

func TestMonitor_Watch(t *testing.T) {
	var up atomic.Bool
	probe := ProbeFunc(func(ctx context.Context) bool { return up.Load() })

	m := NewMonitor(false)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := m.Subscribe(ctx)
	next(t, ch)

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Watch(ctx, probe, 10*time.Millisecond)
	}()

	up.Store(true)
	if !next(t, ch) {
		t.Error("Watch did not report the online transition")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestHTTPProbe_Reachable(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected bool
	}{
		{"ok", http.StatusOK, true},
		{"not found still reachable", http.StatusNotFound, true},
		{"server error", http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			probe := NewHTTPProbe(server.URL)
			if got := probe.Reachable(context.Background()); got != tt.expected {
				t.Errorf("Reachable() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestHTTPProbe_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	if NewHTTPProbe(url).Reachable(context.Background()) {
		t.Error("Reachable() on a closed server = true, want false")
	}
}
