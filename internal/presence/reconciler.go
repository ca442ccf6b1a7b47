package presence

import (
	"fmt"
	"sync"
	"time"
)

// DisconnectPolicy decides what happens to a record when its holding
// connection goes away.
type DisconnectPolicy string

const (
	// PolicyRemove drops the record and notifies everyone.
	PolicyRemove DisconnectPolicy = "remove"
	// PolicyRetain keeps the last known record silently.
	PolicyRetain DisconnectPolicy = "retain"
)

// ParsePolicy validates a policy name. Empty means PolicyRemove.
func ParsePolicy(s string) (DisconnectPolicy, error) {
	switch DisconnectPolicy(s) {
	case "", PolicyRemove:
		return PolicyRemove, nil
	case PolicyRetain:
		return PolicyRetain, nil
	default:
		return "", fmt.Errorf("unknown disconnect policy %q", s)
	}
}

// Result describes the outcome of an accepted update.
type Result struct {
	Record Record
	// IsNew is set when the update created the participant.
	IsNew bool
	// Enrich is set when the profile store should be asked for an avatar.
	Enrich bool
	// Departed is a participant the connection stopped representing because
	// it switched identity, and that must be announced as disconnected.
	Departed string
}

// Reconciler applies updates, enrichment results and disconnects to the
// registry and connection index as single steps.
type Reconciler struct {
	mu       sync.Mutex
	registry *Registry
	index    *ConnIndex
	policy   DisconnectPolicy
	now      func() time.Time
}

// NewReconciler wires a reconciler over the given registry and index.
func NewReconciler(registry *Registry, index *ConnIndex, policy DisconnectPolicy) *Reconciler {
	if policy == "" {
		policy = PolicyRemove
	}
	return &Reconciler{
		registry: registry,
		index:    index,
		policy:   policy,
		now:      time.Now,
	}
}

// Registry exposes the underlying registry for read access.
func (r *Reconciler) Registry() *Registry {
	return r.registry
}

// ApplyUpdate merges a raw update coming from connID. Invalid updates return
// an error wrapping ErrInvalidUpdate and leave all state untouched.
func (r *Reconciler) ApplyUpdate(connID string, u Update) (Result, error) {
	if err := u.Validate(); err != nil {
		return Result{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var res Result
	if prev, switched := r.index.Claim(connID, u.ID); switched {
		if r.depart(prev) {
			res.Departed = prev
		}
	}

	rec, created := r.registry.Upsert(connID, u, r.now())
	res.Record = rec
	res.IsNew = created
	res.Enrich = created && u.AvatarRef == ""
	return res, nil
}

// ApplyEnrichment stores an avatar found by a late profile lookup. The
// record must still exist and still lack an avatar; otherwise the result is
// discarded and ok is false.
func (r *Reconciler) ApplyEnrichment(id, avatarRef string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registry.SetAvatarIfEmpty(id, avatarRef)
}

// Disconnect resolves the participant represented by connID. notify is true
// when a removal must be broadcast. Stale or anonymous connections yield
// an empty id.
func (r *Reconciler) Disconnect(connID string) (id string, notify bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.index.ReleaseByConnection(connID)
	if !ok {
		return "", false
	}
	return id, r.depart(id)
}

func (r *Reconciler) depart(id string) bool {
	if r.policy == PolicyRetain {
		return false
	}
	_, removed := r.registry.Remove(id)
	return removed
}
