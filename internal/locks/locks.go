package locks

import (
	"time"

	"github.com/google/uuid"

	"chalkboard/internal/storage"
	"chalkboard/pkg/types"
)

// TeacherSeat is the singleton lock key for the teacher console.
const TeacherSeat = "teacher"

// Store manages one map of advisory locks persisted in the device store
// under storageKey. Group locks and the teacher seat live in separate
// maps with different storage keys but share the same mechanics.
//
// Locks are advisory: Acquire overwrites unconditionally and reports the
// displaced owner so callers can warn about contention; TryAcquire is the
// checked variant used for the teacher seat. Neither is atomic against a
// concurrent writer on another device — the read/write gap is accepted
// for a classroom-scale deployment.
type Store struct {
	storage    storage.Store
	storageKey string
}

// Result reports the outcome of an acquisition.
type Result struct {
	Acquired      bool
	PreviousOwner string // locker displaced or blocking, "" if none
}

// NewStore creates a lock store over the given device storage key.
func NewStore(st storage.Store, storageKey string) *Store {
	return &Store{storage: st, storageKey: storageKey}
}

// Snapshot returns the current lock map as persisted.
func (s *Store) Snapshot() map[string]types.Lock {
	return storage.ReadJSON(s.storage, s.storageKey, map[string]types.Lock{})
}

// Owner returns the locker currently holding key, if any.
func (s *Store) Owner(key string) (string, bool) {
	l, ok := s.Snapshot()[key]
	if !ok {
		return "", false
	}
	return l.By, true
}

// Acquire claims key for locker, overwriting any existing claim.
// Last writer wins; the previous owner is reported, not protected.
func (s *Store) Acquire(key, locker string) Result {
	latest := s.Snapshot()
	prev := ""
	if l, ok := latest[key]; ok && l.By != locker {
		prev = l.By
	}
	latest[key] = types.Lock{By: locker, At: time.Now().UnixMilli()}
	storage.WriteJSON(s.storage, s.storageKey, latest)
	return Result{Acquired: true, PreviousOwner: prev}
}

// TryAcquire re-reads the latest lock map and claims key only if it is
// free or already held by locker. Used for the teacher seat, where a
// foreign holder must block the login instead of being displaced.
func (s *Store) TryAcquire(key, locker string) Result {
	latest := s.Snapshot()
	if l, ok := latest[key]; ok && l.By != locker {
		return Result{Acquired: false, PreviousOwner: l.By}
	}
	latest[key] = types.Lock{By: locker, At: time.Now().UnixMilli()}
	storage.WriteJSON(s.storage, s.storageKey, latest)
	return Result{Acquired: true}
}

// Release drops key only when locker owns it. Releasing a lock held by
// someone else, or no lock at all, is a no-op.
func (s *Store) Release(key, locker string) {
	latest := s.Snapshot()
	if l, ok := latest[key]; !ok || l.By != locker {
		return
	}
	delete(latest, key)
	storage.WriteJSON(s.storage, s.storageKey, latest)
}

// Clear drops key regardless of owner. Maintenance escape hatch for a
// group stuck behind a stale claim.
func (s *Store) Clear(key string) bool {
	latest := s.Snapshot()
	if _, ok := latest[key]; !ok {
		return false
	}
	delete(latest, key)
	storage.WriteJSON(s.storage, s.storageKey, latest)
	return true
}

// ClearAll drops the whole lock map.
func (s *Store) ClearAll() {
	_ = s.storage.Delete(s.storageKey)
}

// EnsureLockerID returns the device's locker identity stored under
// storageKey, generating and persisting one on first use. The identity
// survives logout and is only ever regenerated by wiping the store.
func EnsureLockerID(st storage.Store, storageKey string) string {
	if raw, ok := st.Get(storageKey); ok && len(raw) > 0 {
		return string(raw)
	}
	id := uuid.New().String()
	if err := st.Set(storageKey, []byte(id)); err != nil {
		// Persisting failed; the in-memory id still identifies this
		// process for the rest of its lifetime.
		return id
	}
	return id
}
