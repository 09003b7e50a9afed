package gesture

import (
	"sync"
	"time"
)

// TimerName identifies one of the recognizer's delayed triggers.
type TimerName string

const (
	TimerLongPress     TimerName = "long-press"
	TimerRecentsSettle TimerName = "recents-settle"
)

// TimerScheduler keeps at most one pending callback per name. Scheduling a
// name again replaces the pending occurrence.
type TimerScheduler struct {
	mu      sync.Mutex
	clock   Clock
	gen     uint64
	pending map[TimerName]*scheduledTimer
}

type scheduledTimer struct {
	gen   uint64
	timer Timer
}

// NewTimerScheduler creates a scheduler on the given clock.
func NewTimerScheduler(clock Clock) *TimerScheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TimerScheduler{
		clock:   clock,
		pending: make(map[TimerName]*scheduledTimer),
	}
}

// Schedule runs fn once after delay unless canceled or replaced first.
func (s *TimerScheduler) Schedule(name TimerName, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked(name)

	s.gen++
	gen := s.gen
	entry := &scheduledTimer{gen: gen}
	s.pending[name] = entry
	entry.timer = s.clock.AfterFunc(delay, func() {
		s.fire(name, gen, fn)
	})
}

// Cancel drops the pending occurrence of name. Returns false when nothing
// was pending.
func (s *TimerScheduler) Cancel(name TimerName) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(name)
}

// CancelAll drops every pending callback.
func (s *TimerScheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range s.pending {
		s.stopLocked(name)
	}
}

// Pending reports whether name is scheduled and has not fired yet.
func (s *TimerScheduler) Pending(name TimerName) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[name]
	return ok
}

func (s *TimerScheduler) stopLocked(name TimerName) bool {
	entry, ok := s.pending[name]
	if !ok {
		return false
	}
	delete(s.pending, name)
	if entry.timer != nil {
		entry.timer.Stop()
	}
	return true
}

// fire runs fn only if this occurrence is still the pending one; a Stop that
// lost the race against the clock lands here and is discarded.
func (s *TimerScheduler) fire(name TimerName, gen uint64, fn func()) {
	s.mu.Lock()
	entry, ok := s.pending[name]
	if !ok || entry.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.pending, name)
	s.mu.Unlock()

	fn()
}
