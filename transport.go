package logroute

import "sync"

// Transport delivers accepted records to some destination. Deliver is
// called synchronously, in registration order, once per accepted record.
// A transport that must not stall the logging call has to queue internally
// and return immediately; the hub does not enforce this.
type Transport interface {
	Deliver(rec *Record)
}

// transportFunc adapts a plain function to the Transport interface. The
// returned pointer is the registration identity.
type transportFunc struct {
	fn func(*Record)
}

func (t *transportFunc) Deliver(rec *Record) {
	t.fn(rec)
}

// TransportOf wraps fn as a Transport. Keep the returned value if the
// transport should ever be removed again: wrapping the same function twice
// yields two distinct identities. A nil fn yields a nil Transport.
func TransportOf(fn func(*Record)) Transport {
	if fn == nil {
		return nil
	}

	return &transportFunc{fn: fn}
}

// transportHub is the ordered registry of transports. Registration order
// is delivery order; registering the same identity twice delivers twice.
type transportHub struct {
	mu         sync.RWMutex
	transports []Transport
}

func (h *transportHub) add(t Transport) {
	if t == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.transports = append(h.transports, t)
}

// remove drops every registration of the given identity.
func (h *transportHub) remove(t Transport) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := make([]Transport, 0, len(h.transports))

	for _, existing := range h.transports {
		if !sameTransport(existing, t) {
			kept = append(kept, existing)
		}
	}

	h.transports = kept
}

// sameTransport compares two transports by identity. Implementations with
// uncomparable dynamic types never match anything.
func sameTransport(a, b Transport) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()

	return a == b
}

// notify fans rec out to every transport in registration order. A
// panicking transport is isolated: it can neither stop the transports
// after it nor escape into the logging call.
func (h *transportHub) notify(rec *Record) {
	h.mu.RLock()
	transports := make([]Transport, len(h.transports))
	copy(transports, h.transports)
	h.mu.RUnlock()

	for _, t := range transports {
		deliverSafely(t, rec)
	}
}

func deliverSafely(t Transport, rec *Record) {
	defer func() {
		_ = recover()
	}()

	t.Deliver(rec)
}
