package presence

import (
	"sync"
	"time"
)

// Registry is the in-memory source of truth for participant records.
// Every method is atomic with respect to concurrent callers.
type Registry struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]Record)}
}

// Get returns the record for id, if present.
func (r *Registry) Get(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec, ok
}

// Upsert merges an already validated update into the registry.
// Coordinates, name, connection and timestamp are always overwritten; the
// avatar reference only when the update carries one. Returns the merged
// record and whether it was newly created.
func (r *Registry) Upsert(connID string, u Update, now time.Time) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.records[u.ID]
	if !exists {
		rec = Record{ID: u.ID}
	}

	rec.Name = u.Name
	rec.Lat = u.Lat
	rec.Lng = u.Lng
	rec.ConnID = connID
	if u.AvatarRef != "" {
		rec.AvatarRef = u.AvatarRef
	}
	// lastUpdated never moves backwards, even if the wall clock does.
	if now.After(rec.UpdatedAt) {
		rec.UpdatedAt = now
	}

	r.records[u.ID] = rec
	return rec, !exists
}

// SetAvatarIfEmpty sets the avatar reference only if the record still exists
// and has no avatar yet. Reports whether the record changed.
func (r *Registry) SetAvatarIfEmpty(id, avatarRef string) (Record, bool) {
	if avatarRef == "" {
		return Record{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok || rec.AvatarRef != "" {
		return Record{}, false
	}
	rec.AvatarRef = avatarRef
	r.records[id] = rec
	return rec, true
}

// Remove deletes the record for id and returns it.
func (r *Registry) Remove(id string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if ok {
		delete(r.records, id)
	}
	return rec, ok
}

// Snapshot returns a point-in-time copy of all records.
func (r *Registry) Snapshot() map[string]Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Record, len(r.records))
	for id, rec := range r.records {
		out[id] = rec
	}
	return out
}

// Len returns the number of tracked participants.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
