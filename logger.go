package logroute

import "strconv"

// Logger is a handle bound to one namespace on a Pipeline. Handles are
// cheap and safe for concurrent use; create them freely. The zero value is
// not usable: always obtain handles from Pipeline.Logger or WithContext.
type Logger struct {
	pipeline  *Pipeline
	namespace string
	context   map[string]any
	scratch   *scratchState
}

// Logger returns a handle bound to the given namespace. An empty namespace
// falls back to DefaultNamespace.
func (p *Pipeline) Logger(namespace string, opts ...LoggerOption) *Logger {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	l := &Logger{
		pipeline:  p,
		namespace: namespace,
		scratch:   newScratchState(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoggerOption configures a Logger handle at creation time.
type LoggerOption func(*Logger)

// WithContext sets the initial structured context fields on the handle,
// as the WithContext method does on an existing one.
func WithContext(fields map[string]any) LoggerOption {
	return func(l *Logger) {
		l.context = mergeContext(nil, fields)
	}
}

// Namespace returns the namespace this handle is bound to.
func (l *Logger) Namespace() string {
	return l.namespace
}

// WithContext returns a derived handle whose records carry the merged
// context fields as one trailing structured argument. The derived handle
// has fresh counter and timer scratch state.
func (l *Logger) WithContext(fields map[string]any) *Logger {
	return &Logger{
		pipeline:  l.pipeline,
		namespace: l.namespace,
		context:   mergeContext(l.context, fields),
		scratch:   newScratchState(),
	}
}

func mergeContext(base, extra map[string]any) map[string]any {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}

	merged := make(map[string]any, len(base)+len(extra))

	for k, v := range base {
		merged[k] = v
	}

	for k, v := range extra {
		merged[k] = v
	}

	return merged
}

// Trace logs its arguments at the trace level.
func (l *Logger) Trace(v ...any) {
	l.emit(LevelTrace, v)
}

// Debug logs its arguments at the debug level.
func (l *Logger) Debug(v ...any) {
	l.emit(LevelDebug, v)
}

// Log logs its arguments at the log level.
func (l *Logger) Log(v ...any) {
	l.emit(LevelLog, v)
}

// Info logs its arguments at the info level.
func (l *Logger) Info(v ...any) {
	l.emit(LevelInfo, v)
}

// Warn logs its arguments at the warn level.
func (l *Logger) Warn(v ...any) {
	l.emit(LevelWarn, v)
}

// Error logs its arguments at the error level.
func (l *Logger) Error(v ...any) {
	l.emit(LevelError, v)
}

// Once logs its arguments at the info level the first time the key fires
// for this namespace. Repeats are suppressed for the pipeline's lifetime
// until Pipeline.ResetOnce clears the whole set.
func (l *Logger) Once(key string, v ...any) {
	if !l.pipeline.dedup.mark(l.namespace, key) {
		return
	}

	l.emit(LevelInfo, v)
}

// Count increments the labeled counter and logs the new total at the info
// level, as "label: n". An empty label counts under "default".
func (l *Logger) Count(label string) {
	label = scratchLabel(label)
	total := l.scratch.increment(label)

	l.emit(LevelInfo, []any{label + ": " + strconv.Itoa(total)})
}

// CountReset sets the labeled counter back to zero and logs "label: 0".
func (l *Logger) CountReset(label string) {
	label = scratchLabel(label)
	l.scratch.resetCount(label)

	l.emit(LevelInfo, []any{label + ": 0"})
}

// Time starts (or restarts) the labeled timer.
func (l *Logger) Time(label string) {
	l.scratch.startTimer(scratchLabel(label), l.pipeline.now())
}

// TimeEnd stops the labeled timer and logs the elapsed time at the info
// level, as "label: 12.3ms". Without a pending timer it is a no-op.
func (l *Logger) TimeEnd(label string) {
	label = scratchLabel(label)

	elapsed, ok := l.scratch.stopTimer(label, l.pipeline.now())
	if !ok {
		return
	}

	l.emit(LevelInfo, []any{label + ": " + formatDuration(elapsed)})
}

// emit attaches the handle's context fields and runs the call through the
// pipeline. The context map is copied per call so a redactor can never
// reach back into the handle.
func (l *Logger) emit(level logLevel, args []any) {
	if len(l.context) > 0 {
		withCtx := make([]any, 0, len(args)+1)
		withCtx = append(withCtx, args...)
		withCtx = append(withCtx, mergeContext(l.context, nil))
		args = withCtx
	}

	l.pipeline.log(level, l.namespace, args)
}
