package domain

import "time"

// TripStatus represents the lifecycle status of a tracked trip.
type TripStatus string

const (
	TripStatusActive  TripStatus = "ACTIVE"
	TripStatusStopped TripStatus = "STOPPED"
)

// StopReason explains why tracking ended.
type StopReason string

const (
	StopReasonCompleted StopReason = "completed"
	StopReasonCancelled StopReason = "cancelled"
	StopReasonExpired   StopReason = "expired"
)

// Stage is the phase of a trip relative to pickup/dropoff arrival.
// It is derived from geofence state and only ever moves forward.
type Stage string

const (
	StageEnroute   Stage = "enroute"
	StageAtPickup  Stage = "at_pickup"
	StagePickedUp  Stage = "picked_up"
	StageAtDropoff Stage = "at_dropoff"
)

// GeofenceZone is a circular arrival trigger around a waypoint.
// Triggered is monotonic: once set it never reverts for the life of the trip.
type GeofenceZone struct {
	Lat         float64
	Lng         float64
	RadiusKm    float64
	Triggered   bool
	TriggeredAt time.Time
}

// Contains reports whether a point lies inside the zone, given the
// precomputed distance to the zone center.
func (z *GeofenceZone) Contains(distanceKm float64) bool {
	return distanceKm <= z.RadiusKm
}

// Progress is the derived trip status at a point in time.
type Progress struct {
	DistanceToPickupKm  float64
	DistanceToDropoffKm float64
	ETAToPickupMin      int
	ETAToDropoffMin     int
	IsAtPickup          bool
	IsAtDropoff         bool
	Stage               Stage
}

// TripState is the per-trip aggregate mutated by every location update.
// All mutation happens under the owning registry entry's lock.
type TripState struct {
	TripID     string
	BookingID  string
	DriverID   string
	CustomerID string
	Status     TripStatus
	StartedAt  time.Time
	LastUpdate time.Time

	CurrentLocation *LocationSample
	History         []LocationSample
	MaxHistory      int

	Progress    Progress
	Route       Route
	PickupZone  GeofenceZone
	DropoffZone GeofenceZone

	// LastETAEmitted holds the ETA-to-pickup carried by the most recent
	// eta_updated event, used for the 1-minute debounce.
	LastETAEmitted int

	// TimeoutFlagged is set after an advisory timeout event so the reaper
	// does not emit one per sweep; a fresh update re-arms it.
	TimeoutFlagged bool

	nextSequence int
}

// AppendSample records a sample in arrival order, assigns its sequence
// index and evicts the oldest entry once MaxHistory is exceeded.
// LastUpdate never moves backward: a sample stamped by a stale device
// clock still counts as activity but cannot rewind the trip into expiry.
func (t *TripState) AppendSample(sample LocationSample) {
	sample.Sequence = t.nextSequence
	t.nextSequence++

	t.History = append(t.History, sample)
	if t.MaxHistory > 0 && len(t.History) > t.MaxHistory {
		t.History = t.History[len(t.History)-t.MaxHistory:]
	}

	t.CurrentLocation = &t.History[len(t.History)-1]
	if sample.Timestamp.After(t.LastUpdate) {
		t.LastUpdate = sample.Timestamp
	}
	t.TimeoutFlagged = false
}

// Clone returns a deep copy safe to hand out while updates continue.
func (t *TripState) Clone() *TripState {
	clone := *t
	clone.History = make([]LocationSample, len(t.History))
	copy(clone.History, t.History)
	if len(clone.History) > 0 {
		clone.CurrentLocation = &clone.History[len(clone.History)-1]
	} else if t.CurrentLocation != nil {
		loc := *t.CurrentLocation
		clone.CurrentLocation = &loc
	}
	clone.Route.Waypoints = append([]Coordinate(nil), t.Route.Waypoints...)
	return &clone
}
