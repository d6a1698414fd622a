package ports

import (
	"sync"
	"time"
)

// CancelFunc cancels a scheduled callback. Calling it after the callback has
// fired (or after a previous cancel) is a no-op.
type CancelFunc func()

// Scheduler schedules a single delayed callback. It is the engine's only
// asynchronous primitive: the simulated "typing" delay before each bot turn.
//
// The engine holds at most one outstanding schedule at a time and always
// cancels it on teardown, so implementations need no bookkeeping beyond the
// returned cancel handle.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) CancelFunc
}

// TimerScheduler implements Scheduler with time.AfterFunc. This is the
// production implementation.
type TimerScheduler struct{}

// Schedule implements Scheduler.
func (TimerScheduler) Schedule(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// ManualScheduler implements Scheduler with explicit firing, making delivery
// deterministic in tests. It follows the contract-helper pattern: shipped in
// the ports package so every consumer's test suite can drive it.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []*manualEntry
}

type manualEntry struct {
	delay     time.Duration
	fn        func()
	cancelled bool
}

// NewManualScheduler creates an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule implements Scheduler. The callback is held until Fire is called.
func (s *ManualScheduler) Schedule(d time.Duration, fn func()) CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &manualEntry{delay: d, fn: fn}
	s.pending = append(s.pending, entry)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		entry.cancelled = true
	}
}

// Fire runs the oldest pending, non-cancelled callback synchronously.
// Returns false if nothing was pending.
func (s *ManualScheduler) Fire() bool {
	s.mu.Lock()
	var fn func()
	for len(s.pending) > 0 {
		entry := s.pending[0]
		s.pending = s.pending[1:]
		if !entry.cancelled {
			fn = entry.fn
			break
		}
	}
	s.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Pending reports how many non-cancelled callbacks are waiting.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.pending {
		if !e.cancelled {
			n++
		}
	}
	return n
}

// LastDelay returns the delay of the most recently scheduled callback,
// letting tests assert on the computed typing delay.
func (s *ManualScheduler) LastDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return 0
	}
	return s.pending[len(s.pending)-1].delay
}
