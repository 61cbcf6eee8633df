// Package connectivity tracks whether the remote API is reachable and
// broadcasts transitions to independent observers.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lepinkainen/pagesync/pkg/broadcast"
)

// Observer is the read side of a Monitor.
type Observer interface {
	IsConnected() bool
	Subscribe(ctx context.Context) <-chan bool
}

// Monitor holds the authoritative reachability state.
type Monitor struct {
	mu        sync.Mutex
	connected bool
	hub       *broadcast.Hub[bool]
}

// Ensure Monitor implements Observer
var _ Observer = (*Monitor)(nil)

// NewMonitor creates a monitor seeded with the initial state
func NewMonitor(initial bool) *Monitor {
	return &Monitor{
		connected: initial,
		hub:       broadcast.New[bool](1),
	}
}

// IsConnected returns the last known state. It never blocks on the network.
func (m *Monitor) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Subscribe returns a channel that first yields the current state and then
// every transition, until ctx is done or the monitor is closed.
// A slow reader only sees the most recent state.
func (m *Monitor) Subscribe(ctx context.Context) <-chan bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hub.Subscribe(ctx, m.connected)
}

// Set records a reachability report. Reports equal to the current state are
// suppressed; real transitions are broadcast. It returns true on a transition.
func (m *Monitor) Set(connected bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected == connected {
		return false
	}
	m.connected = connected
	n := m.hub.Publish(connected)
	slog.Debug("Connectivity changed", "connected", connected, "subscribers", n)
	return true
}

// Watch polls probe every interval and feeds the results into the monitor
// until ctx is done. The first probe runs immediately.
func (m *Monitor) Watch(ctx context.Context, probe Probe, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.Set(probe.Reachable(ctx))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close ends every subscription
func (m *Monitor) Close() {
	m.hub.Close()
}
