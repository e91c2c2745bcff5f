// Package event defines the typed events the tracking engine emits and the
// publishers that carry them to the broadcast layer.
package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type identifies what happened.
type Type string

const (
	TypeTrackingStarted   Type = "tracking_started"
	TypeLocationUpdated   Type = "location_updated"
	TypeGeofenceTriggered Type = "geofence_triggered"
	TypeETAUpdated        Type = "eta_updated"
	TypeTrackingStopped   Type = "tracking_stopped"
	TypeTimeout           Type = "timeout"
)

// Event is one engine-produced notification. Timestamp is ISO-8601.
type Event struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	TripID    string         `json:"trip_id"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// New builds an event stamped with the given time.
func New(eventType Type, tripID string, at time.Time, data map[string]any) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		TripID:    tripID,
		Timestamp: at.UTC().Format(time.RFC3339),
		Data:      data,
	}
}

// Bus delivers events to the broadcast layer. Implementations absorb their
// own failures; the engine's critical path never depends on delivery.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
}

// MemoryBus collects events in memory. It backs single-process deployments
// and test assertions.
type MemoryBus struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryBus creates an empty MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

// Events returns a copy of everything published so far.
func (b *MemoryBus) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.events...)
}

// EventsOfType returns published events matching the given type, in order.
func (b *MemoryBus) EventsOfType(t Type) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Event
	for _, ev := range b.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

var _ Bus = (*MemoryBus)(nil)
