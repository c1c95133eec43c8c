package dashboard

import (
	"encoding/json"
	"sort"
	"strconv"
	"sync"

	"chalkboard/internal/bus"
	"chalkboard/pkg/types"
)

// DefaultGroupCount is how many classroom groups the console shows by
// default.
const DefaultGroupCount = 13

// GroupStars holds one group's per-activity scores and their sum.
type GroupStars struct {
	A1    int `json:"a1"`
	A2    int `json:"a2"`
	A3    int `json:"a3"`
	Total int `json:"total"`
}

// GroupData is one group's dashboard row: scores plus the last payload
// reported per activity.
type GroupData struct {
	Stars   GroupStars                 `json:"stars"`
	Records map[string]json.RawMessage `json:"records"`
}

// Aggregator folds the event stream into a per-group read model for the
// teacher console: scores, last payloads, and who is online. It never
// writes back to the bus, and nothing is persisted — after a console
// reload the model is rebuilt from replayed login/update events driven
// by the ping protocol.
//
// All folds are last-write-wins sets, so the duplicate and out-of-order
// deliveries the bus allows leave the model correct.
type Aggregator struct {
	bus    *bus.Bus
	groups []int

	mu     sync.RWMutex
	data   map[string]*GroupData
	online map[int]struct{}
	unsub  func()
}

// NewAggregator builds an aggregator for groups 1..DefaultGroupCount.
func NewAggregator(b *bus.Bus) *Aggregator {
	groups := make([]int, DefaultGroupCount)
	for i := range groups {
		groups[i] = i + 1
	}
	return &Aggregator{
		bus:    b,
		groups: groups,
		data:   make(map[string]*GroupData),
		online: make(map[int]struct{}),
	}
}

// Start subscribes to the bus. Idempotent: a started aggregator stays
// subscribed once.
func (a *Aggregator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.unsub != nil {
		return
	}
	a.unsub = a.bus.Subscribe(a.Apply)
}

// Stop unsubscribes, permitting a later restart.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.unsub == nil {
		return
	}
	a.unsub()
	a.unsub = nil
}

// Apply folds one event into the read model.
func (a *Aggregator) Apply(evt types.Event) {
	switch evt.Type {
	case types.EventSessionLogin:
		if evt.GroupID == 0 {
			return
		}
		// Operator logins don't affect the dashboard; an absent role is
		// treated as a recorder for compatibility with older clients.
		if evt.Role != types.RoleRecorder && evt.Role != "" {
			return
		}
		a.mu.Lock()
		a.ensure(evt.GroupID)
		a.online[evt.GroupID] = struct{}{}
		a.mu.Unlock()

	case types.EventSessionLogout:
		if evt.GroupID == 0 {
			return
		}
		if evt.Role != types.RoleRecorder && evt.Role != "" {
			return
		}
		a.mu.Lock()
		// Going offline is not intent to discard progress: scores and
		// records survive until the teacher clears them.
		delete(a.online, evt.GroupID)
		a.mu.Unlock()

	case types.EventStudentUpdate:
		if evt.GroupID == 0 {
			return
		}
		a.mu.Lock()
		g := a.ensure(evt.GroupID)
		g.Records[evt.Activity] = evt.Payload
		switch evt.Activity {
		case types.ActivityA1:
			g.Stars.A1 = evt.Stars
		case types.ActivityA2:
			g.Stars.A2 = evt.Stars
		case types.ActivityA3:
			g.Stars.A3 = evt.Stars
		}
		g.Stars.Total = g.Stars.A1 + g.Stars.A2 + g.Stars.A3
		a.mu.Unlock()
	}
}

// Groups returns the configured group numbers.
func (a *Aggregator) Groups() []int {
	out := make([]int, len(a.groups))
	copy(out, a.groups)
	return out
}

// Data returns a copy of one group's row, false when the group has never
// reported.
func (a *Aggregator) Data(groupID int) (GroupData, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	g, ok := a.data[strconv.Itoa(groupID)]
	if !ok {
		return GroupData{}, false
	}

	cp := GroupData{Stars: g.Stars, Records: make(map[string]json.RawMessage, len(g.Records))}
	for k, v := range g.Records {
		cp.Records[k] = v
	}
	return cp, true
}

// Stars returns one group's scores, zeroed when the group has never
// reported.
func (a *Aggregator) Stars(groupID int) GroupStars {
	g, ok := a.Data(groupID)
	if !ok {
		return GroupStars{}
	}
	return g.Stars
}

// Online returns the sorted list of currently online groups.
func (a *Aggregator) Online() []int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]int, 0, len(a.online))
	for gid := range a.online {
		out = append(out, gid)
	}
	sort.Ints(out)
	return out
}

// IsOnline reports whether a group currently has a recorder logged in.
func (a *Aggregator) IsOnline(groupID int) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.online[groupID]
	return ok
}

// ensure creates a zeroed row for the group if absent. Callers hold
// a.mu.
func (a *Aggregator) ensure(groupID int) *GroupData {
	k := strconv.Itoa(groupID)
	g, ok := a.data[k]
	if !ok {
		g = &GroupData{Records: make(map[string]json.RawMessage)}
		a.data[k] = g
	}
	return g
}
