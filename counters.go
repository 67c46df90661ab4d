package logroute

import (
	"strconv"
	"sync"
	"time"
)

const defaultScratchLabel = "default"

// scratchState is the per-logger mutable scratch for counters and timers.
// Derived loggers get fresh scratch, so siblings never share counts.
type scratchState struct {
	mu     sync.Mutex
	counts map[string]int
	timers map[string]time.Time
}

func newScratchState() *scratchState {
	return &scratchState{
		counts: make(map[string]int),
		timers: make(map[string]time.Time),
	}
}

func scratchLabel(label string) string {
	if label == "" {
		return defaultScratchLabel
	}

	return label
}

// increment bumps the counter for label and returns the new total.
func (s *scratchState) increment(label string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[label]++

	return s.counts[label]
}

// resetCount sets the counter for label back to zero.
func (s *scratchState) resetCount(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[label] = 0
}

// startTimer stores now under label, overwriting any pending timer with
// the same label.
func (s *scratchState) startTimer(label string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timers[label] = now
}

// stopTimer removes the pending timer for label and returns the elapsed
// duration. ok is false when no timer was pending.
func (s *scratchState) stopTimer(label string, now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start, ok := s.timers[label]
	if !ok {
		return 0, false
	}

	delete(s.timers, label)

	return now.Sub(start), true
}

// formatDuration renders an elapsed duration as milliseconds with one
// decimal place, e.g. "12.3ms".
func formatDuration(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)

	return strconv.FormatFloat(ms, 'f', 1, 64) + "ms"
}
