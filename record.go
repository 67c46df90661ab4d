package logroute

import (
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// previewLimit bounds the length of record previews. Arguments are always
// appended whole; the argument that crosses the limit is kept in full and
// iteration stops, so no token is ever cut in half.
const previewLimit = 300

// StackPolicy controls when an accepted record captures the call-site stack.
type StackPolicy int

const (
	// StackNever disables stack capture. This is the default behavior.
	StackNever StackPolicy = iota

	// StackAlways captures a stack for every accepted record.
	// This is very useful for development and debugging, but has a performance cost.
	StackAlways

	// StackOnError captures a stack only for records of warn severity or
	// higher. This is a balanced mode for capturing critical debug
	// information in production with minimal performance impact.
	StackOnError
)

// RedactContext carries the call metadata handed to a Redactor.
type RedactContext struct {
	Level     logLevel
	Namespace string
}

// Redactor rewrites the argument list of a record before it is previewed,
// buffered, or delivered. It receives a copy of the arguments and may
// return a sequence of any length. Returning nil keeps the original
// arguments, and so does panicking; a redactor can never break a log call.
type Redactor func(args []any, ctx RedactContext) []any

// Record is a single accepted log call. Records are immutable once built
// and shared read-only with the history and every transport.
type Record struct {
	Time      time.Time
	Level     logLevel
	Namespace string

	// Args is the argument list exactly as passed to the logger call.
	Args []any

	// Redacted is the argument list after redaction. This, not Args, is
	// what previews and transports expose.
	Redacted []any

	// Preview is the space-joined stringification of Redacted, bounded
	// by previewLimit.
	Preview string

	// Stack is the captured call-site stack trace, or empty when the
	// stack policy did not fire.
	Stack string
}

// logroutePackage is the import path of this package, determined at runtime.
var logroutePackage string

func init() {
	logroutePackage = reflect.TypeOf(Record{}).PkgPath()

	// Fail Fast: if the package path could not be determined, captureStack
	// would not be able to skip this library's own frames, so panic
	// immediately to alert the developer.
	if logroutePackage == "" {
		panic("logroute: could not determine package path for stack capture")
	}
}

// buildRecord assembles the record for an accepted call. Order matters:
// redaction first, then the preview from the redacted arguments so that
// previews never leak unredacted data, then the optional stack.
func (p *Pipeline) buildRecord(level logLevel, ns string, args []any) *Record {
	redacted := p.applyRedaction(args, level, ns)

	rec := &Record{
		Time:      p.now(),
		Level:     level,
		Namespace: ns,
		Args:      args,
		Redacted:  redacted,
		Preview:   buildPreview(redacted),
	}

	if p.shouldCaptureStack(level) {
		rec.Stack = captureStack()
	}

	return rec
}

func (p *Pipeline) shouldCaptureStack(level logLevel) bool {
	switch p.stackPolicy {
	case StackAlways:
		return true
	case StackOnError:
		return levelMap[level] >= levelWeightWarn
	default:
		return false
	}
}

// applyRedaction runs the registered redactor over a copy of args. A
// redactor that panics or returns nil leaves the original arguments in
// place; anything else it returns is used verbatim.
func (p *Pipeline) applyRedaction(args []any, level logLevel, ns string) (out []any) {
	p.mu.RLock()
	redactor := p.redactor
	p.mu.RUnlock()

	if redactor == nil {
		return args
	}

	out = args

	defer func() {
		if r := recover(); r != nil {
			out = args
		}
	}()

	scratch := make([]any, len(args))
	copy(scratch, args)

	if redacted := redactor(scratch, RedactContext{Level: level, Namespace: ns}); redacted != nil {
		out = redacted
	}

	return out
}

// buildPreview joins the stringified arguments with single spaces,
// stopping once the joined text exceeds previewLimit.
func buildPreview(args []any) string {
	var b strings.Builder

	for i, arg := range args {
		if i > 0 {
			b.WriteString(" ")
		}

		b.WriteString(previewArg(arg))

		if b.Len() > previewLimit {
			break
		}
	}

	return b.String()
}

// previewArg renders a single argument as preview text. Strings pass
// through unchanged, scalars render canonically, callables and channels
// render as placeholders, and anything structured goes through JSON with
// "[object]" as the fallback. A panic during stringification yields
// "[unavailable]" instead of escaping to the log call.
func previewArg(v any) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = "[unavailable]"
		}
	}()

	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case error:
		return t.Error()
	}

	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Func:
		return "[function]"
	case reflect.Chan:
		return "[channel]"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	}

	out, err := json.Marshal(v)
	if err != nil {
		return "[object]"
	}

	return string(out)
}

// captureStack renders the current call-site stack as text, skipping the
// frames that belong to this package so the trace starts at the log call
// site. Best effort: an empty string means no stack could be captured.
func captureStack() string {
	pcs := make([]uintptr, 32)

	// 0: Callers, 1: captureStack. Start search from the caller of captureStack.
	n := runtime.Callers(2, pcs)
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder

	for {
		frame, more := frames.Next()

		if !strings.HasPrefix(frame.Function, logroutePackage) {
			fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}

		if !more {
			break
		}
	}

	return b.String()
}
