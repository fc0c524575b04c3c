package session

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a session was never created or has
// already been evicted.
var ErrNotFound = errors.New("session not found")

type record struct {
	createdAt time.Time
	items     []Item
}

// Registry maps session IDs to their stored items and owns all TTL
// bookkeeping. The entire state is in memory; nothing survives a
// process restart. A single mutex guards every mutation so that
// concurrent appends and expiry sweeps can never interleave into a
// state where an item is both evicted and still listed.
type Registry struct {
	mu       sync.Mutex
	sessions map[ID]*record
	now      func() time.Time
}

// NewRegistry returns an empty registry using the wall clock.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[ID]*record),
		now:      time.Now,
	}
}

// WithClock overrides the registry's time source. Tests use it to
// drive expiry deterministically.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// EnsureSession creates an empty session record if none exists,
// stamped with the current time so never-populated sessions still
// expire. Calling it again is a no-op.
func (r *Registry) EnsureSession(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLocked(id)
}

func (r *Registry) ensureLocked(id ID) *record {
	rec, ok := r.sessions[id]
	if !ok {
		rec = &record{createdAt: r.now()}
		r.sessions[id] = rec
	}
	return rec
}

// AppendItem records a stored item under id, creating the session if
// needed. Append order is completion order: callers append only after
// the backing blob is confirmed persisted.
func (r *Registry) AppendItem(id ID, it Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.ensureLocked(id)
	rec.items = append(rec.items, it)
}

// ListItems returns a copy of the session's items in insertion order,
// or ErrNotFound if the session is unknown. A live session with no
// items yet returns an empty slice, not an error.
func (r *Registry) ListItems(id ID) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]Item, len(rec.items))
	copy(out, rec.items)
	return out, nil
}

// EvictExpired removes every item older than ttl as of now and drops
// sessions that end up empty past their own ttl. It returns exactly
// the removed items, locators included, so the caller can issue the
// backend deletes after the lock is released. The lock is held only
// for the in-memory partition, never for backend I/O.
func (r *Registry) EvictExpired(now time.Time, ttl time.Duration) []Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []Item
	for id, rec := range r.sessions {
		var kept []Item
		for _, it := range rec.items {
			if now.Sub(it.CreatedAt) > ttl {
				removed = append(removed, it)
			} else {
				kept = append(kept, it)
			}
		}
		rec.items = kept
		// An empty session past its own age goes too; items expiring
		// implies the session itself is older than ttl.
		if len(rec.items) == 0 && now.Sub(rec.createdAt) > ttl {
			delete(r.sessions, id)
		}
	}
	return removed
}

// Stats reports the current number of sessions and items, for health
// reporting and metrics.
func (r *Registry) Stats() (sessions, items int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessions = len(r.sessions)
	for _, rec := range r.sessions {
		items += len(rec.items)
	}
	return sessions, items
}
