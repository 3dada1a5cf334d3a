package state

import (
	"encoding/json"
	"sync"
)

// Well-known store keys shared between components.
const (
	KeyAnimation  = "animation"
	KeyDistances  = "distances"
	KeyLastLocked = "last_locked_animation"
)

// Store is the shared key/value container every component reads and writes.
// Writers replace whole values under a key; readers take deep snapshots, so
// a reader that parks between frames never observes a later writer's
// mutation and never sees a torn value.
type Store struct {
	mu   sync.RWMutex
	data map[string]interface{}
}

// NewStore creates a store seeded with an initial map. The initial map is
// deep-copied, so the caller keeps ownership of what it passed in.
func NewStore(initial map[string]interface{}) *Store {
	data := make(map[string]interface{}, len(initial))
	for k, v := range initial {
		data[k] = deepCopyValue(v)
	}
	return &Store{data: data}
}

// Update replaces the value stored under key. The value is visible, in
// full, to every subsequent Get and GetUnsafe.
func (s *Store) Update(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Get returns a deep, independent copy of the entire map. Callers may hold
// the snapshot across blocking calls without racing against later updates.
func (s *Store) Get() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]interface{}, len(s.data))
	for k, v := range s.data {
		snapshot[k] = deepCopyValue(v)
	}
	return snapshot
}

// GetUnsafe returns the live map without copying. Only for call sites that
// consume the map immediately without crossing a mutation boundary; anything
// that might run beside a writer should use Get or SnapshotJSON instead.
func (s *Store) GetUnsafe() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// SnapshotJSON serializes the live map while holding the read lock,
// skipping the deep copy. This is the wire-encoder round trip: the encoder
// consumes the map in one step, so no torn value can be observed.
func (s *Store) SnapshotJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(s.data)
}

// deepCopyValue copies the value kinds the store actually carries:
// reading slices, JSON-shaped maps and slices, and immutable scalars.
func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []Reading:
		out := make([]Reading, len(val))
		for i, r := range val {
			out[i] = r.clone()
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			out[k] = deepCopyValue(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = deepCopyValue(inner)
		}
		return out
	default:
		// Scalars (string, numbers, bool, nil) are immutable.
		return v
	}
}
