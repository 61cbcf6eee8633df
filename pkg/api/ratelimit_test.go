package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// fakeClock is a settable time source
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newClockedLimiter(interval time.Duration, burst int) (*IntervalLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewIntervalLimiter(interval, burst)
	rl.now = clock.Now
	return rl, clock
}

func TestIntervalLimiter_Reserve(t *testing.T) {
	tests := []struct {
		name     string
		burst    int
		advance  []time.Duration // clock moves before each reservation
		expected []time.Duration
	}{
		{
			name:     "minimum delay",
			burst:    1,
			advance:  []time.Duration{0, 0, 0},
			expected: []time.Duration{0, time.Second, 2 * time.Second},
		},
		{
			name:     "burst then spacing",
			burst:    3,
			advance:  []time.Duration{0, 0, 0, 0, 0},
			expected: []time.Duration{0, 0, 0, time.Second, 2 * time.Second},
		},
		{
			name:     "idle time refills",
			burst:    2,
			advance:  []time.Duration{0, 0, 0, 5 * time.Second, 0},
			expected: []time.Duration{0, 0, time.Second, 0, 0},
		},
		{
			name:     "partial refill",
			burst:    1,
			advance:  []time.Duration{0, 400 * time.Millisecond},
			expected: []time.Duration{0, 600 * time.Millisecond},
		},
		{
			name:     "zero burst acts as one",
			burst:    0,
			advance:  []time.Duration{0, 0},
			expected: []time.Duration{0, time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl, clock := newClockedLimiter(time.Second, tt.burst)
			for i, want := range tt.expected {
				clock.Advance(tt.advance[i])
				if got := rl.reserve(); (got - want).Abs() > time.Millisecond {
					t.Errorf("reservation %d waits %v, expected %v", i+1, got, want)
				}
			}
		})
	}
}

func TestIntervalLimiter_CanProceed(t *testing.T) {
	rl, clock := newClockedLimiter(time.Second, 2)

	if !rl.CanProceed() {
		t.Fatal("fresh limiter should allow a call")
	}
	rl.reserve()
	if !rl.CanProceed() {
		t.Error("second call of a burst of 2 should not wait")
	}
	rl.reserve()
	if rl.CanProceed() {
		t.Error("exhausted burst should report a wait")
	}

	clock.Advance(time.Second)
	if !rl.CanProceed() {
		t.Error("one interval later a slot should be free")
	}
}

func TestIntervalLimiter_Wait(t *testing.T) {
	rl := NewIntervalLimiter(30*time.Millisecond, 1)
	ctx := context.Background()

	start := time.Now()
	for range 3 {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 55*time.Millisecond {
		t.Errorf("three calls took %v, expected at least 60ms of spacing", elapsed)
	}
}

func TestIntervalLimiter_CancelledWaitReleasesSlot(t *testing.T) {
	rl := NewIntervalLimiter(time.Hour, 1)

	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	if err := rl.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() error = %v, expected context.Canceled", err)
	}

	// One call is spent; the cancelled one must not leave a second debt
	if tokens := rl.limiter.Tokens(); tokens < -0.5 {
		t.Errorf("cancelled wait kept its slot: tokens = %.2f", tokens)
	}
}

func TestIntervalLimiter_SlotPastDeadline(t *testing.T) {
	rl := NewIntervalLimiter(time.Hour, 1)
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() error = %v, expected deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Wait() took %v, expected to fail without waiting", elapsed)
	}
}

func TestIntervalLimiter_AlreadyCancelled(t *testing.T) {
	rl, _ := newClockedLimiter(time.Second, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rl.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, expected context.Canceled", err)
	}
	if !rl.CanProceed() {
		t.Error("a cancelled caller should not consume a slot")
	}
}

func TestIntervalLimiter_Concurrent(t *testing.T) {
	rl, _ := newClockedLimiter(time.Second, 1)

	var wg sync.WaitGroup
	waits := make(chan time.Duration, 10)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			waits <- rl.reserve()
		}()
	}
	wg.Wait()
	close(waits)

	seen := make(map[time.Duration]bool)
	for w := range waits {
		if seen[w] {
			t.Errorf("two callers got the same slot %v", w)
		}
		seen[w] = true
	}
}

func TestNoOpRateLimiter(t *testing.T) {
	rl := NewNoOpRateLimiter()

	for range 100 {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if !rl.CanProceed() {
		t.Error("NoOpRateLimiter should always allow calls")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Error("Wait() should report a cancelled context")
	}
}

func TestNewRateLimiter(t *testing.T) {
	if _, ok := NewRateLimiter(0, 5).(*NoOpRateLimiter); !ok {
		t.Error("zero delay should disable limiting")
	}

	rl, ok := NewRateLimiter(time.Second, 4).(*IntervalLimiter)
	if !ok {
		t.Fatal("positive delay should return an IntervalLimiter")
	}
	if rl.limiter.Limit() != rate.Every(time.Second) || rl.limiter.Burst() != 4 {
		t.Errorf("limiter = limit %v burst %d", rl.limiter.Limit(), rl.limiter.Burst())
	}
}

func BenchmarkIntervalLimiter_Reserve(b *testing.B) {
	rl := NewIntervalLimiter(time.Nanosecond, 1)
	for b.Loop() {
		rl.reserve()
	}
}
