package storage

import (
	"encoding/json"
	"log"
)

// Store is the shared on-device key-value store backing locker identity,
// advisory locks and persisted session state. All writers on the same
// device profile share one store, so writes are visible across client
// processes the way localStorage is across tabs.
type Store interface {
	// Get returns the stored value for key, or false if absent.
	Get(key string) ([]byte, bool)
	// Set stores value under key, overwriting any previous value.
	Set(key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	Close() error
}

// ReadJSON loads and decodes the value under key, falling back to def
// when the key is absent or the stored JSON is corrupt. Corruption is
// never fatal: the caller continues from the default state.
func ReadJSON[T any](s Store, key string, def T) T {
	raw, ok := s.Get(key)
	if !ok {
		return def
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Printf("[Storage] Corrupt value for %s, using defaults: %v", key, err)
		return def
	}
	return v
}

// WriteJSON encodes v and stores it under key. Best-effort: failures are
// logged and swallowed so persistence problems never block client actions.
func WriteJSON(s Store, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Printf("[Storage] Failed to encode %s: %v", key, err)
		return
	}
	if err := s.Set(key, raw); err != nil {
		log.Printf("[Storage] Failed to persist %s: %v", key, err)
	}
}
