package logroute

import (
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/valyala/fastjson"
)

// DefaultBufferCapacity is the history capacity used when no
// WithBufferCapacity option is given.
const DefaultBufferCapacity = 200

// BufferedEntry is the trimmed projection of a Record kept in history:
// no raw arguments, no stack, just enough to reconstruct a readable line.
// Export and import round-trip through exactly this shape, all strings.
type BufferedEntry struct {
	Time      string `json:"time"`
	Level     string `json:"level"`
	Namespace string `json:"namespace"`
	Preview   string `json:"preview"`
}

// ringBuffer is a fixed-capacity history with oldest-first eviction.
// Instances are safe for concurrent use.
type ringBuffer struct {
	mu       sync.Mutex
	capacity int
	entries  []BufferedEntry
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = DefaultBufferCapacity
	}

	return &ringBuffer{
		capacity: capacity,
		entries:  make([]BufferedEntry, 0, capacity),
	}
}

func (r *ringBuffer) append(e BufferedEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, e)
	r.trim()
}

// trim evicts entries from the front in one step until the capacity
// invariant holds again. Callers must hold r.mu.
func (r *ringBuffer) trim() {
	if over := len(r.entries) - r.capacity; over > 0 {
		r.entries = append(r.entries[:0], r.entries[over:]...)
	}
}

// snapshot returns a copy of the history, oldest first.
func (r *ringBuffer) snapshot() []BufferedEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]BufferedEntry, len(r.entries))
	copy(out, r.entries)

	return out
}

func (r *ringBuffer) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = r.entries[:0]
}

// export serializes the history snapshot to JSON text. It never fails:
// a serialization error yields the empty-array form.
func (r *ringBuffer) export() string {
	out, err := json.Marshal(r.snapshot())
	if err != nil {
		return "[]"
	}

	return string(out)
}

// load replaces or extends the history from data, which may be a typed
// slice, a generic sequence, or JSON text. Each element is coerced to a
// BufferedEntry with defaults filled in. Returns false, leaving the
// history untouched, when data cannot be read as a sequence.
func (r *ringBuffer) load(data any, appendEntries bool, now func() time.Time) bool {
	entries, ok := coerceEntries(data, now)
	if !ok {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !appendEntries {
		r.entries = r.entries[:0]
	}

	r.entries = append(r.entries, entries...)
	r.trim()

	return true
}

// coerceEntries interprets data as a sequence of buffered entries.
func coerceEntries(data any, now func() time.Time) ([]BufferedEntry, bool) {
	switch d := data.(type) {
	case nil:
		return nil, false
	case []BufferedEntry:
		out := make([]BufferedEntry, 0, len(d))
		for _, e := range d {
			out = append(out, normalizeEntry(e, now))
		}

		return out, true
	case []map[string]any:
		out := make([]BufferedEntry, 0, len(d))
		for _, m := range d {
			out = append(out, entryFromMap(m, now))
		}

		return out, true
	case []any:
		out := make([]BufferedEntry, 0, len(d))
		for _, elem := range d {
			switch e := elem.(type) {
			case BufferedEntry:
				out = append(out, normalizeEntry(e, now))
			case map[string]any:
				out = append(out, entryFromMap(e, now))
			default:
				out = append(out, normalizeEntry(BufferedEntry{}, now))
			}
		}

		return out, true
	case string:
		return parseEntriesJSON([]byte(d), now)
	case []byte:
		return parseEntriesJSON(d, now)
	default:
		return nil, false
	}
}

// normalizeEntry fills the defaults for missing fields: the current time,
// the "log" level, the global namespace. Preview stays as given.
func normalizeEntry(e BufferedEntry, now func() time.Time) BufferedEntry {
	if e.Time == "" {
		e.Time = now().Format(time.RFC3339Nano)
	}

	if e.Level == "" {
		e.Level = string(LevelLog)
	}

	if e.Namespace == "" {
		e.Namespace = DefaultNamespace
	}

	return e
}

func entryFromMap(m map[string]any, now func() time.Time) BufferedEntry {
	var e BufferedEntry

	if s, ok := m["time"].(string); ok {
		e.Time = s
	}

	if s, ok := m["level"].(string); ok {
		e.Level = s
	}

	if s, ok := m["namespace"].(string); ok {
		e.Namespace = s
	}

	if s, ok := m["preview"].(string); ok {
		e.Preview = s
	}

	return normalizeEntry(e, now)
}

// parseEntriesJSON reads a JSON array of entry objects, tolerating missing
// or mistyped fields per element. Anything that is not a JSON array fails
// the whole import.
func parseEntriesJSON(data []byte, now func() time.Time) ([]BufferedEntry, bool) {
	var p fastjson.Parser

	v, err := p.ParseBytes(data)
	if err != nil || v.Type() != fastjson.TypeArray {
		return nil, false
	}

	values, err := v.Array()
	if err != nil {
		return nil, false
	}

	out := make([]BufferedEntry, 0, len(values))
	for _, item := range values {
		out = append(out, normalizeEntry(BufferedEntry{
			Time:      string(item.GetStringBytes("time")),
			Level:     string(item.GetStringBytes("level")),
			Namespace: string(item.GetStringBytes("namespace")),
			Preview:   string(item.GetStringBytes("preview")),
		}, now))
	}

	return out, true
}
