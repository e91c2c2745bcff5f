package persist

import (
	"time"

	"tracking/internal/domain"
)

// Snapshot is the serialized form of a TripState written to the cache and
// durable tiers. It is a plain document: no locks, no unexported state.
type Snapshot struct {
	TripID     string    `json:"trip_id" bson:"_id"`
	BookingID  string    `json:"booking_id" bson:"booking_id"`
	DriverID   string    `json:"driver_id" bson:"driver_id"`
	CustomerID string    `json:"customer_id" bson:"customer_id"`
	Status     string    `json:"status" bson:"status"`
	StopReason string    `json:"stop_reason,omitempty" bson:"stop_reason,omitempty"`
	StartedAt  time.Time `json:"started_at" bson:"started_at"`
	LastUpdate time.Time `json:"last_update" bson:"last_update"`

	CurrentLocation *SnapshotLocation  `json:"current_location,omitempty" bson:"current_location,omitempty"`
	History         []SnapshotLocation `json:"history" bson:"history"`

	Progress SnapshotProgress `json:"progress" bson:"progress"`
	Route    SnapshotRoute    `json:"route" bson:"route"`

	PickupZone  SnapshotZone `json:"pickup_zone" bson:"pickup_zone"`
	DropoffZone SnapshotZone `json:"dropoff_zone" bson:"dropoff_zone"`

	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// SnapshotLocation mirrors domain.LocationSample.
type SnapshotLocation struct {
	Lat       float64   `json:"lat" bson:"lat"`
	Lng       float64   `json:"lng" bson:"lng"`
	AccuracyM float64   `json:"accuracy_m,omitempty" bson:"accuracy_m,omitempty"`
	SpeedKmh  float64   `json:"speed_kmh,omitempty" bson:"speed_kmh,omitempty"`
	Heading   float64   `json:"heading,omitempty" bson:"heading,omitempty"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Sequence  int       `json:"sequence" bson:"sequence"`
}

// SnapshotProgress mirrors domain.Progress.
type SnapshotProgress struct {
	DistanceToPickupKm  float64 `json:"distance_to_pickup_km" bson:"distance_to_pickup_km"`
	DistanceToDropoffKm float64 `json:"distance_to_dropoff_km" bson:"distance_to_dropoff_km"`
	ETAToPickupMin      int     `json:"eta_to_pickup_min" bson:"eta_to_pickup_min"`
	ETAToDropoffMin     int     `json:"eta_to_dropoff_min" bson:"eta_to_dropoff_min"`
	IsAtPickup          bool    `json:"is_at_pickup" bson:"is_at_pickup"`
	IsAtDropoff         bool    `json:"is_at_dropoff" bson:"is_at_dropoff"`
	Stage               string  `json:"stage" bson:"stage"`
}

// SnapshotRoute mirrors domain.Route.
type SnapshotRoute struct {
	Polyline    string              `json:"polyline,omitempty" bson:"polyline,omitempty"`
	DistanceKm  float64             `json:"distance_km" bson:"distance_km"`
	DurationMin int                 `json:"duration_min" bson:"duration_min"`
	Waypoints   []domain.Coordinate `json:"waypoints,omitempty" bson:"waypoints,omitempty"`
	Source      string              `json:"source" bson:"source"`
}

// SnapshotZone mirrors domain.GeofenceZone.
type SnapshotZone struct {
	Lat         float64    `json:"lat" bson:"lat"`
	Lng         float64    `json:"lng" bson:"lng"`
	RadiusKm    float64    `json:"radius_km" bson:"radius_km"`
	Triggered   bool       `json:"triggered" bson:"triggered"`
	TriggeredAt *time.Time `json:"triggered_at,omitempty" bson:"triggered_at,omitempty"`
}

// FromState builds a Snapshot from a TripState. The caller must hold the
// trip's entry lock or pass a Clone.
func FromState(state *domain.TripState, stopReason domain.StopReason, at time.Time) Snapshot {
	snap := Snapshot{
		TripID:     state.TripID,
		BookingID:  state.BookingID,
		DriverID:   state.DriverID,
		CustomerID: state.CustomerID,
		Status:     string(state.Status),
		StopReason: string(stopReason),
		StartedAt:  state.StartedAt,
		LastUpdate: state.LastUpdate,
		Progress: SnapshotProgress{
			DistanceToPickupKm:  state.Progress.DistanceToPickupKm,
			DistanceToDropoffKm: state.Progress.DistanceToDropoffKm,
			ETAToPickupMin:      state.Progress.ETAToPickupMin,
			ETAToDropoffMin:     state.Progress.ETAToDropoffMin,
			IsAtPickup:          state.Progress.IsAtPickup,
			IsAtDropoff:         state.Progress.IsAtDropoff,
			Stage:               string(state.Progress.Stage),
		},
		Route: SnapshotRoute{
			Polyline:    state.Route.Polyline,
			DistanceKm:  state.Route.DistanceKm,
			DurationMin: state.Route.DurationMin,
			Waypoints:   state.Route.Waypoints,
			Source:      string(state.Route.Source),
		},
		PickupZone:  zoneSnapshot(state.PickupZone),
		DropoffZone: zoneSnapshot(state.DropoffZone),
		UpdatedAt:   at,
	}

	snap.History = make([]SnapshotLocation, len(state.History))
	for i, s := range state.History {
		snap.History[i] = locationSnapshot(s)
	}
	if state.CurrentLocation != nil {
		loc := locationSnapshot(*state.CurrentLocation)
		snap.CurrentLocation = &loc
	}

	return snap
}

func locationSnapshot(s domain.LocationSample) SnapshotLocation {
	return SnapshotLocation{
		Lat:       s.Lat,
		Lng:       s.Lng,
		AccuracyM: s.AccuracyM,
		SpeedKmh:  s.SpeedKmh,
		Heading:   s.Heading,
		Timestamp: s.Timestamp,
		Sequence:  s.Sequence,
	}
}

func zoneSnapshot(z domain.GeofenceZone) SnapshotZone {
	snap := SnapshotZone{
		Lat:       z.Lat,
		Lng:       z.Lng,
		RadiusKm:  z.RadiusKm,
		Triggered: z.Triggered,
	}
	if z.Triggered {
		at := z.TriggeredAt
		snap.TriggeredAt = &at
	}
	return snap
}
