package relay

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"chalkboard/pkg/types"
)

// Retention keys, one retained broadcast per teacher-pushed activity.
const (
	retainKeyActivity2 = "activity2"
	retainKeyActivity3 = "activity3"
)

// connSession is the ephemeral per-connection session metadata, recorded
// on login and dropped on logout or disconnect. Logging/cleanup only —
// the clients' device stores remain the authority on who is logged in.
type connSession struct {
	GroupID int
	Role    string
}

// retainedBroadcast is the latest teacher-pushed content for one
// activity, replayed verbatim to students who ask for it.
type retainedBroadcast struct {
	event types.Event
	raw   []byte
}

type inbound struct {
	conn *Connection
	raw  []byte
	evt  types.Event
}

// Hub fans every inbound event out to all other connections, retains the
// last teacher broadcast per activity for late joiners, and tracks
// per-connection sessions. All state is owned by the single run
// goroutine, so event handling needs no locks.
type Hub struct {
	inboundCh    chan inbound
	registerCh   chan *Connection
	unregisterCh chan *Connection
	shutdownCh   chan struct{}

	conns      map[*Connection]struct{}
	sessions   map[*Connection]connSession
	broadcasts map[string]*retainedBroadcast

	clientCount atomic.Int64

	running bool
	mu      sync.RWMutex
}

// NewHub creates a hub ready to Start.
func NewHub() *Hub {
	return &Hub{
		inboundCh:    make(chan inbound, 1000),
		registerCh:   make(chan *Connection, 100),
		unregisterCh: make(chan *Connection, 100),
		shutdownCh:   make(chan struct{}),
		conns:        make(map[*Connection]struct{}),
		sessions:     make(map[*Connection]connSession),
		broadcasts:   make(map[string]*retainedBroadcast),
	}
}

// Start launches the hub goroutine.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return ErrHubAlreadyRunning
	}
	h.running = true
	h.mu.Unlock()

	log.Println("[Relay] Starting hub")
	go h.run(ctx)
	return nil
}

// Stop shuts the hub down.
func (h *Hub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return ErrHubNotRunning
	}
	h.running = false

	select {
	case <-h.shutdownCh:
	default:
		close(h.shutdownCh)
	}
	return nil
}

// Register queues a connection for registration.
func (h *Hub) Register(conn *Connection) error {
	h.mu.RLock()
	if !h.running {
		h.mu.RUnlock()
		return ErrHubNotRunning
	}
	h.mu.RUnlock()

	select {
	case h.registerCh <- conn:
		return nil
	default:
		return ErrRegisterFull
	}
}

// Unregister queues a connection for removal.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregisterCh <- conn:
	default:
		// The hub is saturated or stopped; disconnect cleanup is
		// best-effort either way.
	}
}

// Dispatch queues one inbound frame from conn. The raw bytes are kept so
// rebroadcast is lossless even for event kinds the relay doesn't model.
func (h *Hub) Dispatch(conn *Connection, raw []byte) error {
	h.mu.RLock()
	if !h.running {
		h.mu.RUnlock()
		return ErrHubNotRunning
	}
	h.mu.RUnlock()

	var evt types.Event
	if err := json.Unmarshal(raw, &evt); err != nil || evt.Type == "" {
		// Not an event frame; ignore rather than poison the loop.
		return nil
	}

	select {
	case h.inboundCh <- inbound{conn: conn, raw: raw, evt: evt}:
		return nil
	default:
		return ErrInboundFull
	}
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	return int(h.clientCount.Load())
}

func (h *Hub) run(ctx context.Context) {
	defer log.Println("[Relay] Hub stopped")

	for {
		select {
		case in := <-h.inboundCh:
			h.handleEvent(in)
		case conn := <-h.registerCh:
			h.conns[conn] = struct{}{}
			h.clientCount.Store(int64(len(h.conns)))
			log.Printf("[Relay] Client connected: %s", conn.ID())
		case conn := <-h.unregisterCh:
			h.dropConnection(conn)
		case <-h.shutdownCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) dropConnection(conn *Connection) {
	if _, ok := h.conns[conn]; !ok {
		return
	}
	delete(h.conns, conn)
	h.clientCount.Store(int64(len(h.conns)))

	if sess, ok := h.sessions[conn]; ok {
		// Peers are not notified; they rely on the next explicit logout
		// or the teacher ping/re-announce cycle to notice absence.
		log.Printf("[Relay] Cleaning up session for group %d", sess.GroupID)
		delete(h.sessions, conn)
	}
	log.Printf("[Relay] Client disconnected: %s", conn.ID())
}

// handleEvent applies the per-type relay rules.
func (h *Hub) handleEvent(in inbound) {
	evt := in.evt
	log.Printf("[Relay] Event received: %s group=%d", evt.Type, evt.GroupID)

	switch {
	case evt.Type == types.EventSessionLogin && evt.GroupID != 0:
		h.sessions[in.conn] = connSession{GroupID: evt.GroupID, Role: evt.Role}
		log.Printf("[Relay] Student logged in: group=%d role=%s", evt.GroupID, evt.Role)
		h.broadcastOthers(in.conn, in.raw)

	case evt.Type == types.EventSessionLogout && evt.GroupID != 0:
		delete(h.sessions, in.conn)
		log.Printf("[Relay] Student logged out: group=%d", evt.GroupID)
		h.broadcastOthers(in.conn, in.raw)

	case evt.Type == types.EventTeacherBroadcast && evt.Activity == types.ActivityA2:
		h.retain(retainKeyActivity2, evt)
		h.broadcastOthers(in.conn, in.raw)

	case evt.Type == types.EventActivity3Broadcast && evt.Activity == types.ActivityA3:
		h.retain(retainKeyActivity3, evt)
		h.broadcastOthers(in.conn, in.raw)

	case evt.Type == types.EventRequestBroadcast:
		h.replayTo(in.conn, evt.Activity)

	case evt.Type == types.EventTeacherClearBroadcasts:
		log.Printf("[Relay] Teacher clearing all broadcasts")
		h.clearBroadcasts()

	case evt.Type == types.EventTeacherLogout:
		log.Printf("[Relay] Teacher logged out, clearing all broadcasts")
		h.clearBroadcasts()

	case evt.Type == types.EventTeacherPing:
		// Echoed to everyone including the sender so every client,
		// teacher console included, re-announces itself.
		h.broadcastAll(in.raw)

	default:
		h.broadcastOthers(in.conn, in.raw)
	}
}

// retain stores evt as the latest broadcast for key. Last write wins, no
// history.
func (h *Hub) retain(key string, evt types.Event) {
	record := types.Event{
		Type:      evt.Type,
		Activity:  evt.Activity,
		Data:      evt.Data,
		Timestamp: time.Now().UnixMilli(),
	}
	raw, err := json.Marshal(&record)
	if err != nil {
		log.Printf("[Relay] Failed to encode retained broadcast: %v", err)
		return
	}
	h.broadcasts[key] = &retainedBroadcast{event: record, raw: raw}
	log.Printf("[Relay] Retained teacher broadcast for %s", key)
}

// replayTo answers a student's catch-up request with the retained record
// for the activity, if any. No record, no reply.
func (h *Hub) replayTo(conn *Connection, activity string) {
	var key string
	switch activity {
	case types.ActivityA2:
		key = retainKeyActivity2
	case types.ActivityA3:
		key = retainKeyActivity3
	default:
		return
	}

	record, ok := h.broadcasts[key]
	if !ok {
		return
	}
	log.Printf("[Relay] Replaying retained broadcast %s to %s", key, conn.ID())
	if err := conn.Send(record.raw); err != nil {
		log.Printf("[Relay] Failed to replay broadcast to %s: %v", conn.ID(), err)
	}
}

func (h *Hub) clearBroadcasts() {
	h.broadcasts = make(map[string]*retainedBroadcast)
	cleared, err := json.Marshal(&types.Event{Type: types.EventTeacherBroadcastsCleared})
	if err != nil {
		return
	}
	h.broadcastAll(cleared)
}

func (h *Hub) broadcastOthers(sender *Connection, raw []byte) {
	for conn := range h.conns {
		if conn == sender {
			continue
		}
		if err := conn.Send(raw); err != nil {
			log.Printf("[Relay] Failed to deliver to %s: %v", conn.ID(), err)
		}
	}
}

func (h *Hub) broadcastAll(raw []byte) {
	for conn := range h.conns {
		if err := conn.Send(raw); err != nil {
			log.Printf("[Relay] Failed to deliver to %s: %v", conn.ID(), err)
		}
	}
}
