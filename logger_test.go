package logroute

import (
	"testing"
	"time"
)

func lastEntry(t *testing.T, p *Pipeline) BufferedEntry {
	t.Helper()

	buf := p.Buffer()
	if len(buf) == 0 {
		t.Fatal("expected at least one buffered entry")
	}

	return buf[len(buf)-1]
}

func previews(p *Pipeline) []string {
	var out []string
	for _, e := range p.Buffer() {
		out = append(out, e.Preview)
	}

	return out
}

func TestLoggerSeverities(t *testing.T) {
	tests := []struct {
		name  string
		log   func(l *Logger)
		level string
	}{
		{"Trace", func(l *Logger) { l.Trace("hello") }, "trace"},
		{"Debug", func(l *Logger) { l.Debug("hello") }, "debug"},
		{"Log", func(l *Logger) { l.Log("hello") }, "log"},
		{"Info", func(l *Logger) { l.Info("hello") }, "info"},
		{"Warn", func(l *Logger) { l.Warn("hello") }, "warn"},
		{"Error", func(l *Logger) { l.Error("hello") }, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			tt.log(p.Logger("app"))

			got := lastEntry(t, p)
			if got.Level != tt.level {
				t.Errorf("buffered level = %q, want %q", got.Level, tt.level)
			}
			if got.Preview != "hello" {
				t.Errorf("buffered preview = %q", got.Preview)
			}
			if got.Namespace != "app" {
				t.Errorf("buffered namespace = %q", got.Namespace)
			}
		})
	}
}

func TestLoggerNamespaceFallback(t *testing.T) {
	p := New()

	l := p.Logger("")
	if got := l.Namespace(); got != "global" {
		t.Errorf("Namespace() = %q, want global", got)
	}

	l.Info("anonymous")
	if got := lastEntry(t, p).Namespace; got != "global" {
		t.Errorf("buffered namespace = %q, want global", got)
	}
}

func TestLoggerOnce(t *testing.T) {
	t.Run("Fires once per key and namespace", func(t *testing.T) {
		p := New()
		app := p.Logger("app")
		db := p.Logger("db")

		app.Once("slow-path", "first")
		app.Once("slow-path", "second")
		app.Once("other", "third")
		db.Once("slow-path", "fourth")

		got := previews(p)
		want := []string{"first", "third", "fourth"}
		if len(got) != len(want) {
			t.Fatalf("previews = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("preview %d = %q, want %q", i, got[i], want[i])
			}
		}

		if e := lastEntry(t, p); e.Level != "info" {
			t.Errorf("once records log at %q, want info", e.Level)
		}
	})

	t.Run("ResetOnce reopens every key", func(t *testing.T) {
		p := New()
		l := p.Logger("app")

		l.Once("k", "first")
		l.Once("k", "suppressed")
		p.ResetOnce()
		l.Once("k", "again")

		if got := previews(p); len(got) != 2 || got[1] != "again" {
			t.Errorf("previews = %v", got)
		}
	})

	t.Run("Suppressed record still consumes the key", func(t *testing.T) {
		p := New()
		l := p.Logger("app")

		p.SetLevel("error")
		l.Once("quiet", "filtered out")

		p.SetLevel("trace")
		l.Once("quiet", "already marked")

		if got := len(p.Buffer()); got != 0 {
			t.Errorf("expected no records, the key was marked while filtered, got %d", got)
		}
	})
}

func TestLoggerCount(t *testing.T) {
	p := New()
	l := p.Logger("app")

	l.Count("")
	l.Count("requests")
	l.Count("requests")
	l.CountReset("requests")
	l.Count("requests")

	got := previews(p)
	want := []string{"default: 1", "requests: 1", "requests: 2", "requests: 0", "requests: 1"}
	if len(got) != len(want) {
		t.Fatalf("previews = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("preview %d = %q, want %q", i, got[i], want[i])
		}
	}

	if e := lastEntry(t, p); e.Level != "info" {
		t.Errorf("count records log at %q, want info", e.Level)
	}
}

func TestLoggerTime(t *testing.T) {
	current := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	p := New(WithClock(func() time.Time { return current }))
	l := p.Logger("app")

	t.Run("Elapsed time is logged", func(t *testing.T) {
		l.Time("op")
		current = current.Add(12300 * time.Microsecond)
		l.TimeEnd("op")

		if got := lastEntry(t, p).Preview; got != "op: 12.3ms" {
			t.Errorf("preview = %q, want op: 12.3ms", got)
		}
	})

	t.Run("Empty label uses default", func(t *testing.T) {
		l.Time("")
		current = current.Add(time.Millisecond)
		l.TimeEnd("")

		if got := lastEntry(t, p).Preview; got != "default: 1.0ms" {
			t.Errorf("preview = %q, want default: 1.0ms", got)
		}
	})

	t.Run("TimeEnd without Time is silent", func(t *testing.T) {
		before := len(p.Buffer())
		l.TimeEnd("never-started")

		if got := len(p.Buffer()); got != before {
			t.Error("TimeEnd without a pending timer produced a record")
		}
	})
}

func TestLoggerWithContext(t *testing.T) {
	t.Run("Context trails the arguments", func(t *testing.T) {
		p := New()
		l := p.Logger("app").WithContext(map[string]any{"user": "ada"})

		l.Info("hello")

		if got := lastEntry(t, p).Preview; got != `hello {"user":"ada"}` {
			t.Errorf("preview = %q", got)
		}
	})

	t.Run("Derivation merges and overrides", func(t *testing.T) {
		p := New()
		base := p.Logger("app").WithContext(map[string]any{"user": "ada", "region": "eu"})

		base.WithContext(map[string]any{"user": "bob"}).Info("hello")

		if got := lastEntry(t, p).Preview; got != `hello {"region":"eu","user":"bob"}` {
			t.Errorf("preview = %q", got)
		}
	})

	t.Run("Parent handle is untouched", func(t *testing.T) {
		p := New()
		base := p.Logger("app")
		base.WithContext(map[string]any{"user": "ada"}).Info("derived")

		base.Info("plain")

		if got := lastEntry(t, p).Preview; got != "plain" {
			t.Errorf("parent preview = %q, want plain", got)
		}
	})

	t.Run("Derived handles get fresh scratch", func(t *testing.T) {
		p := New()
		base := p.Logger("app")
		derived := base.WithContext(map[string]any{"user": "ada"})

		base.Count("x")
		derived.Count("x")

		got := previews(p)
		if len(got) != 2 || got[0] != "x: 1" || got[1] != `x: 1 {"user":"ada"}` {
			t.Errorf("previews = %v", got)
		}
	})

	t.Run("Option form at creation", func(t *testing.T) {
		p := New()
		p.Logger("app", WithContext(map[string]any{"svc": "api"})).Info("boot")

		if got := lastEntry(t, p).Preview; got != `boot {"svc":"api"}` {
			t.Errorf("preview = %q", got)
		}
	})

	t.Run("Redactors see a copy of the context", func(t *testing.T) {
		p := New()
		l := p.Logger("app").WithContext(map[string]any{"user": "ada"})

		p.SetRedactor(func(args []any, ctx RedactContext) []any {
			if m, ok := args[len(args)-1].(map[string]any); ok {
				m["user"] = "[redacted]"
			}
			return args
		})
		l.Info("first")

		p.SetRedactor(nil)
		l.Info("second")

		got := previews(p)
		if got[0] != `first {"user":"[redacted]"}` {
			t.Errorf("redacted preview = %q", got[0])
		}
		if got[1] != `second {"user":"ada"}` {
			t.Errorf("the handle's own context was mutated: %q", got[1])
		}
	})
}
