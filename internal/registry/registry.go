// Package registry holds the in-process collection of actively tracked
// trips. It is the single shared mutable collection in the engine; every
// TripState is confined to the entry that owns it.
package registry

import (
	"errors"
	"sync"

	"tracking/internal/domain"
)

var (
	// ErrAlreadyTracking is returned when registering a trip id that is
	// already live.
	ErrAlreadyTracking = errors.New("trip already being tracked")

	// ErrNotFound is returned when a trip id has no live entry.
	ErrNotFound = errors.New("trip not found")
)

// Entry owns one TripState. Callers must hold the entry lock for the
// duration of any read-modify-write of the state; the registry lock is
// only ever held for map access, so updates to different trips never
// contend with each other.
type Entry struct {
	mu    sync.Mutex
	State *domain.TripState
}

// Lock acquires the per-trip exclusive section.
func (e *Entry) Lock() { e.mu.Lock() }

// Unlock releases the per-trip exclusive section.
func (e *Entry) Unlock() { e.mu.Unlock() }

// Registry is a concurrency-safe map of trip id to live entry.
type Registry struct {
	mu    sync.RWMutex
	trips map[string]*Entry
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{trips: make(map[string]*Entry)}
}

// Register adds a new live entry for the trip, failing if one exists.
func (r *Registry) Register(tripID string, state *domain.TripState) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.trips[tripID]; exists {
		return nil, ErrAlreadyTracking
	}

	entry := &Entry{State: state}
	r.trips[tripID] = entry
	return entry, nil
}

// Get returns the live entry for the trip.
func (r *Registry) Get(tripID string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.trips[tripID]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

// Remove deletes and returns the entry for the trip. A second Remove for
// the same id reports ErrNotFound, which makes stop paths idempotent-safe.
func (r *Registry) Remove(tripID string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.trips[tripID]
	if !ok {
		return nil, ErrNotFound
	}
	delete(r.trips, tripID)
	return entry, nil
}

// List returns a snapshot of all live entries. The slice is a copy; the
// entries themselves are shared and must be locked before touching state.
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*Entry, 0, len(r.trips))
	for _, e := range r.trips {
		entries = append(entries, e)
	}
	return entries
}

// Len returns the number of live trips.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.trips)
}
