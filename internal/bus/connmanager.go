package bus

import (
	"log"
	"sync"
	"time"

	"chalkboard/pkg/types"
)

// State of the remote channel.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

const (
	defaultMaxAttempts = 5
	defaultBackoff     = 2 * time.Second
	outboxSize         = 256
)

// ConnManager owns the WebSocket side of the bus. The connection is
// established lazily on the first Send or Listen and the bootstrap runs
// exactly once per manager: after the bounded retry budget is spent the
// channel stays disconnected for the rest of the manager's lifetime.
// That mirrors the memoized connect of the browser client and is kept
// deliberately.
type ConnManager struct {
	url         string
	dialer      Dialer
	maxAttempts int
	backoff     time.Duration

	startOnce sync.Once
	outbox    chan types.Event

	mu       sync.Mutex
	state    State
	handlers map[int]Handler
	next     int
}

// NewConnManager creates a manager for the relay at url. A nil dialer
// falls back to the real WebSocket dialer.
func NewConnManager(url string, dialer Dialer) *ConnManager {
	if dialer == nil {
		dialer = WebSocketDialer{}
	}
	return &ConnManager{
		url:         url,
		dialer:      dialer,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
		outbox:      make(chan types.Event, outboxSize),
		handlers:    make(map[int]Handler),
	}
}

// State returns the current channel state.
func (m *ConnManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *ConnManager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Send queues evt for remote delivery, starting the connection bootstrap
// if it has not run yet. Fire-and-forget: when the outbox is full or the
// channel is down the event is dropped, never blocking the caller.
func (m *ConnManager) Send(evt types.Event) {
	m.ensureStarted()
	select {
	case m.outbox <- evt:
	default:
		log.Printf("[Bus] Remote outbox full, dropping %s", evt.Type)
	}
}

// Listen registers h for remotely delivered events and returns an
// idempotent cancel function. Listening also triggers the bootstrap so a
// subscriber-only client still hears the classroom.
func (m *ConnManager) Listen(h Handler) func() {
	m.ensureStarted()
	m.mu.Lock()
	id := m.next
	m.next++
	m.handlers[id] = h
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.handlers, id)
			m.mu.Unlock()
		})
	}
}

func (m *ConnManager) ensureStarted() {
	m.startOnce.Do(func() {
		go m.run()
	})
}

// run dials, pumps, and reconnects until the attempt budget is gone.
func (m *ConnManager) run() {
	attempts := 0
	for {
		m.setState(Connecting)
		conn, err := m.dialer.Dial(m.url)
		if err != nil {
			attempts++
			if attempts >= m.maxAttempts {
				log.Printf("[Bus] Remote channel unavailable after %d attempts: %v", attempts, err)
				m.setState(Disconnected)
				return
			}
			time.Sleep(m.backoff)
			continue
		}

		attempts = 0
		m.setState(Connected)
		log.Printf("[Bus] Connected to relay %s", m.url)
		m.pump(conn)

		// Connection lost; go around for another bounded round of dials.
		m.setState(Disconnected)
		attempts++
		if attempts >= m.maxAttempts {
			log.Printf("[Bus] Remote channel closed, retry budget spent")
			return
		}
		time.Sleep(m.backoff)
	}
}

// pump writes queued events and reads inbound ones until the connection
// fails in either direction.
func (m *ConnManager) pump(conn Conn) {
	done := make(chan struct{})

	go func() {
		for {
			select {
			case evt := <-m.outbox:
				if err := conn.WriteJSON(&evt); err != nil {
					_ = conn.Close()
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		var evt types.Event
		if err := conn.ReadJSON(&evt); err != nil {
			break
		}
		if evt.Type == "" {
			continue
		}
		m.dispatch(evt)
	}

	close(done)
	_ = conn.Close()
}

func (m *ConnManager) dispatch(evt types.Event) {
	m.mu.Lock()
	hs := make([]Handler, 0, len(m.handlers))
	for _, h := range m.handlers {
		hs = append(hs, h)
	}
	m.mu.Unlock()

	for _, h := range hs {
		h(evt)
	}
}
