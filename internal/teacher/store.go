package teacher

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"chalkboard/internal/bus"
	"chalkboard/internal/locks"
	"chalkboard/internal/storage"
	"chalkboard/pkg/types"
)

// Device store keys for the teacher console.
const (
	KeyLock         = "va_teacher_lock"
	KeySession      = "va_teacher_session"
	KeyLocker       = "va_teacher_locker_id"
	KeyDemoCode     = "va_teacher_demo_code"
	KeyDemoCodeInfo = "va_teacher_demo_codeInfo"
)

// The console password is fixed and plaintext by design; access control
// here is a classroom courtesy, not a security boundary.
const password = "123456"

type sessionState struct {
	Logged bool `json:"logged"`
}

// Store is the teacher console session. Unlike group login, taking the
// teacher seat is checked: at most one console system-wide is the
// intent, enforced best-effort through the seat lock.
type Store struct {
	storage  storage.Store
	locks    *locks.Store
	bus      *bus.Bus
	lockerID string

	mu      sync.Mutex
	session sessionState
}

// NewStore loads the persisted teacher session and immediately runs the
// auto-relogin check: a locker still holding the seat stays logged in, a
// seat held elsewhere forces this console out.
func NewStore(st storage.Store, b *bus.Bus) *Store {
	s := &Store{
		storage:  st,
		locks:    locks.NewStore(st, KeyLock),
		bus:      b,
		lockerID: locks.EnsureLockerID(st, KeyLocker),
		session:  storage.ReadJSON(st, KeySession, sessionState{}),
	}
	s.AutoRelogin()
	return s
}

// LockerID returns this console's claimant identity.
func (s *Store) LockerID() string {
	return s.lockerID
}

// IsLoggedIn reports whether this console both holds the seat lock and
// has a logged session.
func (s *Store) IsLoggedIn() bool {
	owner, held := s.locks.Owner(locks.TeacherSeat)
	s.mu.Lock()
	defer s.mu.Unlock()
	return held && owner == s.lockerID && s.session.Logged
}

// CanLogin reports whether the seat is free or already ours.
func (s *Store) CanLogin() error {
	owner, held := s.locks.Owner(locks.TeacherSeat)
	if held && owner != s.lockerID {
		return ErrSeatTaken
	}
	return nil
}

// Login validates the password and claims the teacher seat. The acquire
// re-reads the latest lock state and refuses a foreign holder, closing
// most — not all — of the window between check and write. Distinct
// errors let the console tell "wrong password" from "seat held
// elsewhere" from "lost the race".
func (s *Store) Login(pw string) error {
	if err := s.CanLogin(); err != nil {
		return err
	}
	if pw != password {
		return ErrWrongPassword
	}
	if res := s.locks.TryAcquire(locks.TeacherSeat, s.lockerID); !res.Acquired {
		return ErrSeatLost
	}

	s.mu.Lock()
	s.session.Logged = true
	s.save()
	s.mu.Unlock()
	log.Printf("[Teacher] Logged in: locker=%s", s.lockerID)
	return nil
}

// Logout releases the seat, clears the session and any saved demo-code
// artifacts, and tells the relay to drop its retained broadcasts.
func (s *Store) Logout() {
	s.locks.Release(locks.TeacherSeat, s.lockerID)

	s.mu.Lock()
	s.session.Logged = false
	s.save()
	s.mu.Unlock()

	_ = s.storage.Delete(KeyDemoCode)
	_ = s.storage.Delete(KeyDemoCodeInfo)

	s.bus.Emit(types.Event{Type: types.EventTeacherLogout})
	log.Printf("[Teacher] Logged out: locker=%s", s.lockerID)
}

// AutoRelogin restores the logged state when this locker still owns the
// seat, and forces logout when another console took it while this one
// was asleep. A free seat leaves the session untouched.
func (s *Store) AutoRelogin() {
	owner, held := s.locks.Owner(locks.TeacherSeat)
	if !held {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Logged = owner == s.lockerID
	s.save()
}

// SetDemoCode persists teacher-authored demo code and its variable
// bindings for the next broadcast.
func (s *Store) SetDemoCode(code string, info []types.VarBinding) {
	storage.WriteJSON(s.storage, KeyDemoCode, code)
	storage.WriteJSON(s.storage, KeyDemoCodeInfo, info)
}

// DemoCode returns the saved demo code, false when none is saved.
func (s *Store) DemoCode() (string, []types.VarBinding, bool) {
	raw, ok := s.storage.Get(KeyDemoCode)
	if !ok {
		return "", nil, false
	}
	var code string
	if err := json.Unmarshal(raw, &code); err != nil {
		return "", nil, false
	}
	info := storage.ReadJSON(s.storage, KeyDemoCodeInfo, []types.VarBinding(nil))
	return code, info, true
}

// BroadcastActivity2 pushes activity 2 content to the classroom. The
// relay retains the latest push for late joiners.
func (s *Store) BroadcastActivity2(content types.BroadcastContent) {
	raw, err := json.Marshal(&content)
	if err != nil {
		log.Printf("[Teacher] Failed to encode activity 2 broadcast: %v", err)
		return
	}
	s.bus.Emit(types.Event{
		Type:     types.EventTeacherBroadcast,
		Activity: types.ActivityA2,
		Data:     raw,
	})
}

// BroadcastActivity3 pushes the activity 3 direction list.
func (s *Store) BroadcastActivity3(directions []string) {
	content := types.Activity3Content{
		Directions: directions,
		Timestamp:  time.Now().UnixMilli(),
	}
	raw, err := json.Marshal(&content)
	if err != nil {
		log.Printf("[Teacher] Failed to encode activity 3 broadcast: %v", err)
		return
	}
	s.bus.Emit(types.Event{
		Type:     types.EventActivity3Broadcast,
		Activity: types.ActivityA3,
		Data:     raw,
	})
}

// Ping probes classroom liveness. Every client, this console included,
// re-announces itself in response.
func (s *Store) Ping() {
	s.bus.Emit(types.Event{Type: types.EventTeacherPing})
}

// ClearBroadcasts drops the relay's retained content without logging
// out.
func (s *Store) ClearBroadcasts() {
	s.bus.Emit(types.Event{Type: types.EventTeacherClearBroadcasts})
}

// save persists the session flag. Callers hold s.mu.
func (s *Store) save() {
	storage.WriteJSON(s.storage, KeySession, &s.session)
}
