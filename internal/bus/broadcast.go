package bus

import (
	"sync"

	"chalkboard/pkg/types"
)

// Handler receives events delivered by either transport. Handlers must be
// idempotent: the same logical event can arrive twice, once per transport.
type Handler func(types.Event)

// Broadcast is the device-local transport: a named channel shared by
// every client context on the same device. Posting on one port delivers
// to listeners on every other port, never back to the poster's own
// listeners, mirroring how same-origin tabs hear each other.
type Broadcast struct {
	mu    sync.RWMutex
	ports map[*Port]struct{}
}

// NewBroadcast creates an empty device-local channel.
func NewBroadcast() *Broadcast {
	return &Broadcast{ports: make(map[*Port]struct{})}
}

// Open attaches a new port to the channel. Each client context owns one.
func (b *Broadcast) Open() *Port {
	p := &Port{bc: b, handlers: make(map[int]Handler)}
	b.mu.Lock()
	b.ports[p] = struct{}{}
	b.mu.Unlock()
	return p
}

// Port is one end of the device-local channel.
type Port struct {
	bc       *Broadcast
	mu       sync.Mutex
	handlers map[int]Handler
	next     int
	closed   bool
}

// Post delivers evt to listeners on all other ports of the channel.
// Delivery is synchronous and never fails.
func (p *Port) Post(evt types.Event) {
	p.bc.mu.RLock()
	targets := make([]*Port, 0, len(p.bc.ports))
	for other := range p.bc.ports {
		if other != p {
			targets = append(targets, other)
		}
	}
	p.bc.mu.RUnlock()

	for _, t := range targets {
		t.dispatch(evt)
	}
}

// Listen registers h and returns an idempotent cancel function.
func (p *Port) Listen(h Handler) func() {
	p.mu.Lock()
	id := p.next
	p.next++
	p.handlers[id] = h
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.handlers, id)
			p.mu.Unlock()
		})
	}
}

// Close detaches the port from the channel and drops its listeners.
func (p *Port) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.handlers = make(map[int]Handler)
	p.mu.Unlock()

	p.bc.mu.Lock()
	delete(p.bc.ports, p)
	p.bc.mu.Unlock()
}

func (p *Port) dispatch(evt types.Event) {
	p.mu.Lock()
	hs := make([]Handler, 0, len(p.handlers))
	for _, h := range p.handlers {
		hs = append(hs, h)
	}
	p.mu.Unlock()

	for _, h := range hs {
		h(evt)
	}
}
