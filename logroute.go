// Package logroute provides a runtime log-routing layer. Every log call
// carries a severity level and a free-form namespace; the pipeline decides
// per call, without restart, whether the call is emitted, under which
// effective level threshold, subject to what sampling rate, and after what
// redaction, then fans the finished record out to a bounded in-memory
// history and to the registered transports.
package logroute

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Pipeline is the decision-and-delivery pipeline. One instance per process
// is the expected shape: create it once at startup and hand it to the
// components that log. Instances are safe for concurrent use; the
// configuration operations may be called at any time, including while
// other goroutines are logging.
type Pipeline struct {
	mu          sync.RWMutex
	filter      filterConfig
	redactor    Redactor
	stackPolicy StackPolicy

	buffer *ringBuffer
	hub    *transportHub
	dedup  *dedupTracker

	now func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a Pipeline with default settings: every level enabled, all
// namespaces on, no sampling, no redaction, no stack capture, a history of
// DefaultBufferCapacity entries, and no transports.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		filter:      newFilterConfig(),
		stackPolicy: StackNever,
		buffer:      newRingBuffer(DefaultBufferCapacity),
		hub:         &transportHub{},
		dedup:       newDedupTracker(),
		now:         time.Now,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// log runs one call through the pipeline: filter, build, buffer, fan out.
func (p *Pipeline) log(level logLevel, ns string, args []any) {
	if !p.accept(level, ns) {
		return
	}

	rec := p.buildRecord(level, ns, args)

	p.buffer.append(BufferedEntry{
		Time:      rec.Time.Format(time.RFC3339Nano),
		Level:     string(rec.Level),
		Namespace: rec.Namespace,
		Preview:   rec.Preview,
	})

	p.hub.notify(rec)
}

// accept applies the gates in their fixed order: level threshold, then the
// sampling draw, then namespace enablement. The draw is consumed only
// after the level check passed, so changing a level threshold never shifts
// the sampling sequence of calls whose level already qualified.
func (p *Pipeline) accept(level logLevel, ns string) bool {
	weight, ok := levelMap[level]
	if !ok {
		return false
	}

	p.mu.RLock()
	threshold := p.filter.effectiveLevelWeight(ns)
	rate, sampled := p.filter.sampleRate(ns)
	enabled := p.filter.namespaceEnabled(ns)
	p.mu.RUnlock()

	if weight < threshold {
		return false
	}

	if sampled && p.randFloat() >= rate {
		return false
	}

	return enabled
}

// levelEnabled reports whether a call at the given level and namespace
// would pass the level gate. It consumes no sampling draw.
func (p *Pipeline) levelEnabled(level logLevel, ns string) bool {
	weight, ok := levelMap[level]
	if !ok {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	return weight >= p.filter.effectiveLevelWeight(ns)
}

func (p *Pipeline) randFloat() float64 {
	p.rngMu.Lock()
	defer p.rngMu.Unlock()

	return p.rng.Float64()
}

// EnableNamespaces replaces the include/exclude lists from a spec string:
// comma- or whitespace-separated wildcard tokens, with a "-" prefix for
// excludes. A blank spec enables everything.
func (p *Pipeline) EnableNamespaces(spec string) {
	includes, excludes := parseNamespaceSpec(spec)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.filter.includeRules = includes
	p.filter.excludeRules = excludes
}

// SetNamespaceLevels replaces the per-namespace level override table.
// Order is significant: the first matching rule wins. Rules naming an
// unknown level are dropped.
func (p *Pipeline) SetNamespaceLevels(rules []LevelRule) {
	compiled := compileLevelRules(rules)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.filter.levelRules = compiled
}

// SetSampling replaces the per-namespace sampling table. Order is
// significant: the first matching rule wins. Rates are clamped into [0, 1].
func (p *Pipeline) SetSampling(rules []SampleRule) {
	compiled := compileSampleRules(rules)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.filter.sampleRules = compiled
}

// SetRedactor installs, or with nil clears, the redactor applied to every
// accepted record before previewing, buffering, and delivery.
func (p *Pipeline) SetRedactor(fn Redactor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.redactor = fn
}

// SetLevel sets the global level threshold by name. An unknown name
// leaves the previous threshold untouched.
func (p *Pipeline) SetLevel(levelName string) {
	level, err := ParseLevel(levelName)
	if err != nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.filter.globalLevel = level
}

// Level returns the name of the current global level threshold.
func (p *Pipeline) Level() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return string(p.filter.globalLevel)
}

// AddTransport registers a transport at the end of the delivery order.
// Registering the same identity twice delivers twice.
func (p *Pipeline) AddTransport(t Transport) {
	p.hub.add(t)
}

// RemoveTransport drops every registration of the given identity.
func (p *Pipeline) RemoveTransport(t Transport) {
	p.hub.remove(t)
}

// Buffer returns a copy of the history, oldest first.
func (p *Pipeline) Buffer() []BufferedEntry {
	return p.buffer.snapshot()
}

// ClearBuffer discards the history.
func (p *Pipeline) ClearBuffer() {
	p.buffer.clear()
}

// ExportBuffer serializes the history to JSON text. It never fails; the
// fallback is the empty-array form "[]".
func (p *Pipeline) ExportBuffer() string {
	return p.buffer.export()
}

// ImportBuffer loads history entries from data: a []BufferedEntry, a
// generic sequence, or JSON text as string or []byte. Missing fields get
// defaults. With appendEntries false the current history is replaced.
// Returns false, without touching the history, when data cannot be read
// as a sequence.
func (p *Pipeline) ImportBuffer(data any, appendEntries bool) bool {
	return p.buffer.load(data, appendEntries, p.now)
}

// ResetOnce clears the dedup set so every Once key may fire again.
func (p *Pipeline) ResetOnce() {
	p.dedup.reset()
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBufferCapacity sets the history capacity. Values below 1 are ignored.
func WithBufferCapacity(capacity int) Option {
	return func(p *Pipeline) {
		if capacity < 1 {
			return
		}

		p.buffer = newRingBuffer(capacity)
	}
}

// WithLevel sets the initial global level threshold. Unknown levels are
// ignored, matching SetLevel.
func WithLevel(level logLevel) Option {
	return func(p *Pipeline) {
		if _, ok := levelMap[level]; !ok {
			return
		}

		p.filter.globalLevel = level
	}
}

// WithNamespaces sets the initial namespace spec, exactly as
// EnableNamespaces does at runtime.
func WithNamespaces(spec string) Option {
	return func(p *Pipeline) {
		includes, excludes := parseNamespaceSpec(spec)
		p.filter.includeRules = includes
		p.filter.excludeRules = excludes
	}
}

// WithStackPolicy configures stack capture for accepted records.
// Note: StackAlways has a non-trivial performance cost due to the use of
// runtime.Callers.
func WithStackPolicy(policy StackPolicy) Option {
	// This is the "Fail Fast" check.
	if policy < StackNever || policy > StackOnError {
		panic(fmt.Sprintf("logroute: invalid StackPolicy provided: %d", policy))
	}

	return func(p *Pipeline) {
		p.stackPolicy = policy
	}
}

// WithRedactor installs the initial redactor.
func WithRedactor(fn Redactor) Option {
	return func(p *Pipeline) {
		p.redactor = fn
	}
}

// WithTransports registers the initial transports in the given order.
func WithTransports(transports ...Transport) Option {
	return func(p *Pipeline) {
		for _, t := range transports {
			p.hub.add(t)
		}
	}
}

// WithClock overrides the wall clock used for record timestamps and
// timers. Mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRandomSource overrides the source behind the sampling draw so tests
// can pin the sequence.
func WithRandomSource(src rand.Source) Option {
	return func(p *Pipeline) {
		if src != nil {
			p.rng = rand.New(src)
		}
	}
}
