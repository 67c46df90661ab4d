package logroute

import "sync"

// dedupTracker remembers which (namespace, key) pairs have already fired a
// "once" record. Marks persist for the pipeline's lifetime until reset.
type dedupTracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newDedupTracker() *dedupTracker {
	return &dedupTracker{seen: make(map[string]struct{})}
}

// mark records the pair and reports whether this was its first occurrence.
func (d *dedupTracker) mark(ns, key string) bool {
	composite := ns + "|" + key

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[composite]; ok {
		return false
	}

	d.seen[composite] = struct{}{}

	return true
}

// reset forgets every mark at once. There is no per-key reset.
func (d *dedupTracker) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	clearOrResetMap(&d.seen, 1024)
}
