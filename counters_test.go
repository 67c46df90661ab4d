package logroute

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"Zero", 0, "0.0ms"},
		{"Exact millisecond", time.Millisecond, "1.0ms"},
		{"Sub-millisecond", 1500 * time.Microsecond, "1.5ms"},
		{"Typical elapsed", 12300 * time.Microsecond, "12.3ms"},
		{"Seconds stay in milliseconds", 2 * time.Second, "2000.0ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatDuration(tt.duration); got != tt.expected {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.duration, got, tt.expected)
			}
		})
	}
}

func TestScratchLabel(t *testing.T) {
	if got := scratchLabel(""); got != "default" {
		t.Errorf("scratchLabel(\"\") = %q, want default", got)
	}
	if got := scratchLabel("requests"); got != "requests" {
		t.Errorf("scratchLabel(\"requests\") = %q", got)
	}
}

func TestScratchCounts(t *testing.T) {
	s := newScratchState()

	if got := s.increment("a"); got != 1 {
		t.Errorf("first increment = %d, want 1", got)
	}
	if got := s.increment("a"); got != 2 {
		t.Errorf("second increment = %d, want 2", got)
	}
	if got := s.increment("b"); got != 1 {
		t.Errorf("labels must count independently, got %d", got)
	}

	s.resetCount("a")

	if got := s.increment("a"); got != 1 {
		t.Errorf("increment after reset = %d, want 1", got)
	}
	if got := s.increment("b"); got != 2 {
		t.Errorf("reset of one label touched another, got %d", got)
	}
}

func TestScratchTimers(t *testing.T) {
	s := newScratchState()
	start := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	t.Run("Stop without start", func(t *testing.T) {
		if _, ok := s.stopTimer("missing", start); ok {
			t.Error("expected ok=false for an unknown label")
		}
	})

	t.Run("Elapsed time", func(t *testing.T) {
		s.startTimer("op", start)

		elapsed, ok := s.stopTimer("op", start.Add(12300*time.Microsecond))
		if !ok {
			t.Fatal("expected a pending timer")
		}
		if elapsed != 12300*time.Microsecond {
			t.Errorf("elapsed = %v", elapsed)
		}

		// Stopping consumed the timer.
		if _, ok := s.stopTimer("op", start); ok {
			t.Error("timer should be gone after stop")
		}
	})

	t.Run("Restart overwrites", func(t *testing.T) {
		s.startTimer("op", start)
		s.startTimer("op", start.Add(time.Second))

		elapsed, ok := s.stopTimer("op", start.Add(2*time.Second))
		if !ok {
			t.Fatal("expected a pending timer")
		}
		if elapsed != time.Second {
			t.Errorf("elapsed = %v, want the later start to win", elapsed)
		}
	})
}

func TestDedupTracker(t *testing.T) {
	d := newDedupTracker()

	if !d.mark("app", "slow-path") {
		t.Error("first mark should report unseen")
	}
	if d.mark("app", "slow-path") {
		t.Error("second mark should report seen")
	}
	if !d.mark("db", "slow-path") {
		t.Error("same key under another namespace is distinct")
	}

	d.reset()

	if !d.mark("app", "slow-path") {
		t.Error("reset should forget all keys")
	}
}
