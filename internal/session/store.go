package session

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"

	"chalkboard/internal/bus"
	"chalkboard/internal/locks"
	"chalkboard/internal/storage"
	"chalkboard/pkg/types"
)

// Device store keys. Stable across releases: reload durability depends
// on finding the same keys again.
const (
	KeySession = "va_session_current"
	KeyLocks   = "va_session_locks"
	KeyLocker  = "va_session_locker"
)

// nullPayload is the wire payload for re-announced scores: the score is
// authoritative, the activity payload is not being replayed.
var nullPayload = json.RawMessage("null")

// Store is the student/operator session: persistent login with advisory
// group ownership. Two states — logged out, or logged into one group
// with one role. Every mutation is fully persisted so a restart resumes
// the session without credentials.
//
// Group login is deliberately unconditional: the last claimant wins and
// the displaced owner is only reported, never protected. This policy
// differs from the checked teacher seat and is preserved as-is.
type Store struct {
	storage  storage.Store
	locks    *locks.Store
	bus      *bus.Bus
	lockerID string

	mu    sync.Mutex
	state types.SessionState
	unsub func()
}

// NewStore loads persisted state from the device store and, when it
// shows an active login, re-acquires the group lock and re-announces the
// session — the mechanism that makes login survive restarts. It also
// installs the teacher-ping responder.
func NewStore(st storage.Store, b *bus.Bus) *Store {
	s := &Store{
		storage:  st,
		locks:    locks.NewStore(st, KeyLocks),
		bus:      b,
		lockerID: locks.EnsureLockerID(st, KeyLocker),
		state:    storage.ReadJSON(st, KeySession, types.DefaultSessionState()),
	}
	if s.state.RecordsByGroup == nil {
		s.state.RecordsByGroup = map[string]map[string]json.RawMessage{}
	}

	s.resume()
	s.unsub = b.Subscribe(s.onEvent)
	return s
}

// resume re-claims the lock and re-emits the login for a persisted
// session.
func (s *Store) resume() {
	s.mu.Lock()
	gid := s.state.GroupID
	role := s.roleOrDefault()
	s.mu.Unlock()

	if gid == nil {
		return
	}
	s.locks.Acquire(strconv.Itoa(*gid), s.lockerID)
	s.bus.Emit(types.Event{Type: types.EventSessionLogin, GroupID: *gid, Role: role})
	log.Printf("[Session] Resumed login: group=%d role=%s", *gid, role)
}

// LockerID returns this device's claimant identity.
func (s *Store) LockerID() string {
	return s.lockerID
}

// IsLoggedIn reports whether persisted state carries a group. Possession
// of local state counts as being logged in; lock ownership is not
// re-verified here.
func (s *Store) IsLoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GroupID != nil
}

// GroupID returns the active group, if logged in.
func (s *Store) GroupID() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.GroupID == nil {
		return 0, false
	}
	return *s.state.GroupID, true
}

// Role returns the active role, empty when logged out.
func (s *Store) Role() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Role
}

// CurrentTab returns the persisted navigation tab.
func (s *Store) CurrentTab() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentTab
}

// Login claims groupID for this locker and announces the session. There
// is no rejection path: an existing claim is overwritten and reported in
// the result so the UI can warn about the displaced owner.
func (s *Store) Login(groupID int, role string) locks.Result {
	if !types.IsValidRole(role) {
		role = types.RoleRecorder
	}

	s.mu.Lock()
	gid := groupID
	s.state.GroupID = &gid
	s.state.Role = role
	s.save()
	s.mu.Unlock()

	res := s.locks.Acquire(strconv.Itoa(groupID), s.lockerID)
	if res.PreviousOwner != "" {
		log.Printf("[Session] Group %d lock taken over from %s", groupID, res.PreviousOwner)
	}
	s.bus.Emit(types.Event{Type: types.EventSessionLogin, GroupID: groupID, Role: role})
	return res
}

// Logout releases the lock if this locker owns it, deletes the group's
// accumulated records, clears the session, and announces the logout. The
// locker identity survives so the same device can log straight back in.
func (s *Store) Logout() {
	s.mu.Lock()
	gid := s.state.GroupID
	role := s.state.Role
	if gid != nil {
		delete(s.state.RecordsByGroup, strconv.Itoa(*gid))
	}
	s.state.GroupID = nil
	s.state.Role = ""
	s.save()
	s.mu.Unlock()

	if gid == nil {
		return
	}
	s.locks.Release(strconv.Itoa(*gid), s.lockerID)
	s.bus.Emit(types.Event{Type: types.EventSessionLogout, GroupID: *gid, Role: role})
}

// SetTab persists the active navigation tab.
func (s *Store) SetTab(tab string) {
	if !types.IsValidTab(tab) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentTab = tab
	s.save()
}

// GetRecord returns the named record for the active group.
func (s *Store) GetRecord(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gk := s.groupKey()
	if gk == "" {
		return nil, false
	}
	rec, ok := s.state.RecordsByGroup[gk][key]
	return rec, ok
}

// SetRecord stores the named record for the active group. Best-effort:
// no-op when logged out, encode failures are logged and swallowed.
func (s *Store) SetRecord(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Printf("[Session] Failed to encode record %s: %v", key, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	gk := s.groupKey()
	if gk == "" {
		return
	}
	if s.state.RecordsByGroup[gk] == nil {
		s.state.RecordsByGroup[gk] = map[string]json.RawMessage{}
	}
	s.state.RecordsByGroup[gk][key] = raw
	s.save()
}

// RecordStars persists the score for an activity and announces it as a
// student update. Only recorders report scores.
func (s *Store) RecordStars(activity string, stars int, payload any) {
	if !types.IsValidActivity(activity) {
		return
	}

	s.mu.Lock()
	gid := s.state.GroupID
	role := s.roleOrDefault()
	s.mu.Unlock()

	if gid == nil || role != types.RoleRecorder {
		return
	}
	s.SetRecord(starsRecordKey(activity), stars)

	rawPayload := nullPayload
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			rawPayload = raw
		}
	}
	s.bus.Emit(types.Event{
		Type:     types.EventStudentUpdate,
		GroupID:  *gid,
		Activity: activity,
		Stars:    stars,
		Payload:  rawPayload,
	})
}

// Stars returns the recorded score for an activity, false when none was
// recorded for the active group.
func (s *Store) Stars(activity string) (int, bool) {
	raw, ok := s.GetRecord(starsRecordKey(activity))
	if !ok {
		return 0, false
	}
	var stars int
	if err := json.Unmarshal(raw, &stars); err != nil {
		return 0, false
	}
	return stars, true
}

// Close detaches the store from the bus.
func (s *Store) Close() {
	if s.unsub != nil {
		s.unsub()
	}
}

// onEvent answers teacher liveness pings: re-announce presence, and for
// recorders replay each activity's last recorded score so a reloaded
// teacher console can rebuild its dashboard from the stream alone.
func (s *Store) onEvent(evt types.Event) {
	if evt.Type != types.EventTeacherPing {
		return
	}

	s.mu.Lock()
	gid := s.state.GroupID
	role := s.roleOrDefault()
	s.mu.Unlock()

	if gid == nil {
		return
	}
	s.bus.Emit(types.Event{Type: types.EventSessionLogin, GroupID: *gid, Role: role})

	if role != types.RoleRecorder {
		return
	}
	for _, activity := range []string{types.ActivityA1, types.ActivityA2, types.ActivityA3} {
		stars, ok := s.Stars(activity)
		if !ok {
			continue
		}
		s.bus.Emit(types.Event{
			Type:     types.EventStudentUpdate,
			GroupID:  *gid,
			Activity: activity,
			Stars:    stars,
			Payload:  nullPayload,
		})
	}
}

// save persists the full session state. Callers hold s.mu.
func (s *Store) save() {
	storage.WriteJSON(s.storage, KeySession, &s.state)
}

// groupKey returns the active group's record key, "" when logged out.
// Callers hold s.mu.
func (s *Store) groupKey() string {
	if s.state.GroupID == nil {
		return ""
	}
	return strconv.Itoa(*s.state.GroupID)
}

func (s *Store) roleOrDefault() string {
	if s.state.Role == "" {
		return types.RoleRecorder
	}
	return s.state.Role
}

func starsRecordKey(activity string) string {
	return "stars_" + activity
}
