package tracker

import "sync"

// EventKind distinguishes the two raw input notifications the tracker
// consumes.
type EventKind int

const (
	KeyDown EventKind = iota
	MouseDown
)

// InputSource wraps whatever delivers global key-down/mouse-down
// notifications. Start and Stop are idempotent; implementations deliver
// events to the handler passed to Start.
type InputSource interface {
	Start(handler func(EventKind)) error
	Stop() error
}

// Relay is an InputSource fed by the owning event loop: the UI forwards its
// key and mouse events into Emit, and the relay passes them on while
// started. Events arriving while stopped are dropped.
type Relay struct {
	mu      sync.Mutex
	handler func(EventKind)
	active  bool
}

func NewRelay() *Relay {
	return &Relay{}
}

func (r *Relay) Start(handler func(EventKind)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = handler
	r.active = true
	return nil
}

func (r *Relay) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
	r.handler = nil
	return nil
}

func (r *Relay) Emit(kind EventKind) {
	r.mu.Lock()
	h := r.handler
	active := r.active
	r.mu.Unlock()
	if active && h != nil {
		h(kind)
	}
}
