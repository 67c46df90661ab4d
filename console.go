package logroute

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ConsoleTransport renders accepted records as single human-readable
// lines: timestamp, severity tag, namespace, preview, and the indented
// stack when one was captured. Output is colorized per severity when the
// writer is a terminal, unless WithConsoleColor forces a mode.
type ConsoleTransport struct {
	mu  sync.Mutex
	out io.Writer

	colorOverride *bool

	levelColors map[logLevel]*color.Color
	nsColor     *color.Color
	timeColor   *color.Color
}

// ConsoleOption configures a ConsoleTransport.
type ConsoleOption func(*ConsoleTransport)

// WithConsoleOutput sets the writer for the transport. The default is os.Stderr.
func WithConsoleOutput(w io.Writer) ConsoleOption {
	return func(t *ConsoleTransport) {
		if w != nil {
			t.out = w
		}
	}
}

// WithConsoleColor forces colored or plain output instead of the terminal
// autodetection.
func WithConsoleColor(enabled bool) ConsoleOption {
	return func(t *ConsoleTransport) {
		t.colorOverride = &enabled
	}
}

// NewConsoleTransport creates a console transport writing to os.Stderr.
func NewConsoleTransport(opts ...ConsoleOption) *ConsoleTransport {
	t := &ConsoleTransport{
		out: os.Stderr,
		levelColors: map[logLevel]*color.Color{
			LevelTrace: color.New(color.FgHiBlack),
			LevelDebug: color.New(color.FgCyan),
			LevelLog:   color.New(color.FgWhite),
			LevelInfo:  color.New(color.FgGreen),
			LevelWarn:  color.New(color.FgYellow),
			LevelError: color.New(color.FgRed),
		},
		nsColor:   color.New(color.FgMagenta),
		timeColor: color.New(color.FgHiBlack),
	}

	for _, opt := range opts {
		opt(t)
	}

	enabled := writerIsTerminal(t.out)
	if t.colorOverride != nil {
		enabled = *t.colorOverride
	}

	for _, c := range t.levelColors {
		setColorEnabled(c, enabled)
	}

	setColorEnabled(t.nsColor, enabled)
	setColorEnabled(t.timeColor, enabled)

	return t
}

func setColorEnabled(c *color.Color, enabled bool) {
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
}

func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Deliver renders rec as a single line and writes it out. The writer is
// guarded by a mutex so lines from concurrent goroutines never interleave.
func (t *ConsoleTransport) Deliver(rec *Record) {
	var b strings.Builder

	b.WriteString(t.timeColor.Sprint(rec.Time.Format(time.RFC3339)))
	b.WriteString(" ")

	tag := "[" + strings.ToUpper(string(rec.Level)) + "]"
	if c, ok := t.levelColors[rec.Level]; ok {
		tag = c.Sprint(tag)
	}

	b.WriteString(tag)
	b.WriteString(" ")

	b.WriteString(t.nsColor.Sprint(rec.Namespace))
	b.WriteString(" ")

	b.WriteString(rec.Preview)

	if rec.Stack != "" {
		b.WriteString("\n\t")
		b.WriteString(strings.ReplaceAll(strings.TrimRight(rec.Stack, "\n"), "\n", "\n\t"))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintln(t.out, b.String())
}
