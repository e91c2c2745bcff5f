package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"tracking/internal/analytics"
	"tracking/internal/config"
	"tracking/internal/domain"
	"tracking/internal/event"
	"tracking/internal/geo"
	"tracking/internal/persist"
	"tracking/internal/progress"
	"tracking/internal/registry"
	"tracking/internal/repository"
	"tracking/internal/route"
)

// cleanupMinAge is the floor for CleanupExpired so a bad caller cannot
// sweep away every live trip.
const cleanupMinAge = time.Second

// TrackingService composes the registry, progress engine, route planner,
// persistence bridge and event bus into the engine's public operations.
type TrackingService struct {
	cfg      config.TrackingConfig
	trips    *registry.Registry
	engine   *progress.Engine
	planner  route.Planner
	bridge   *persist.Bridge
	bus      event.Bus
	bookings repository.BookingRepository
}

// NewTrackingService creates a new TrackingService. The bookings
// repository may be nil when start requests always carry coordinates.
func NewTrackingService(
	cfg config.TrackingConfig,
	trips *registry.Registry,
	engine *progress.Engine,
	planner route.Planner,
	bridge *persist.Bridge,
	bus event.Bus,
	bookings repository.BookingRepository,
) *TrackingService {
	return &TrackingService{
		cfg:      cfg,
		trips:    trips,
		engine:   engine,
		planner:  planner,
		bridge:   bridge,
		bus:      bus,
		bookings: bookings,
	}
}

// StartTrackingRequest contains the parameters for starting a trip.
// Pickup/Dropoff may be nil when BookingID is set; the coordinates are
// then resolved from the booking store.
type StartTrackingRequest struct {
	TripID     string
	BookingID  string
	DriverID   string
	CustomerID string
	Pickup     *domain.Coordinate
	Dropoff    *domain.Coordinate
}

// StartTracking registers a trip, plans its initial route, persists the
// first snapshot and emits tracking_started.
func (s *TrackingService) StartTracking(ctx context.Context, req StartTrackingRequest) (*domain.TripState, error) {
	if req.TripID == "" || req.DriverID == "" || req.CustomerID == "" {
		return nil, ErrInvalidTripData
	}

	pickup, dropoff, err := s.resolveWaypoints(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	state := &domain.TripState{
		TripID:     req.TripID,
		BookingID:  req.BookingID,
		DriverID:   req.DriverID,
		CustomerID: req.CustomerID,
		Status:     domain.TripStatusActive,
		StartedAt:  now,
		LastUpdate: now,
		MaxHistory: s.cfg.MaxHistory,
		PickupZone: domain.GeofenceZone{
			Lat: pickup.Lat, Lng: pickup.Lng, RadiusKm: s.cfg.GeofenceRadiusKm,
		},
		DropoffZone: domain.GeofenceZone{
			Lat: dropoff.Lat, Lng: dropoff.Lng, RadiusKm: s.cfg.GeofenceRadiusKm,
		},
	}

	entry, err := s.trips.Register(req.TripID, state)
	if err != nil {
		if errors.Is(err, registry.ErrAlreadyTracking) {
			return nil, ErrAlreadyTracking
		}
		return nil, err
	}

	// The resolver absorbs remote failures, so routing never unwinds a
	// registration.
	planned, _ := s.planner.PlanRoute(ctx, pickup, dropoff, nil)

	entry.Lock()
	state.Route = planned
	// Until the first location report arrives, the planned route stands in
	// for the driver's distance to both waypoints.
	state.Progress = domain.Progress{
		DistanceToPickupKm:  planned.DistanceKm,
		DistanceToDropoffKm: planned.DistanceKm,
		ETAToPickupMin:      planned.DurationMin,
		ETAToDropoffMin:     planned.DurationMin,
		Stage:               domain.StageEnroute,
	}
	snapshot := state.Clone()
	entry.Unlock()

	s.bridge.SaveSnapshot(ctx, snapshot)
	s.publish(ctx, event.New(event.TypeTrackingStarted, req.TripID, now, map[string]any{
		"booking_id":   req.BookingID,
		"driver_id":    req.DriverID,
		"customer_id":  req.CustomerID,
		"pickup":       pickup,
		"dropoff":      dropoff,
		"route_source": string(planned.Source),
	}))

	return snapshot, nil
}

// UpdateLocationRequest contains one reported position for a trip.
// Accuracy, speed and heading are optional.
type UpdateLocationRequest struct {
	TripID    string
	Lat       float64
	Lng       float64
	AccuracyM float64
	SpeedKmh  float64
	Heading   float64
	Timestamp time.Time
}

// UpdateLocation runs the progress algorithm for one sample. The in-memory
// state commits first; cache and durable writes follow best-effort.
func (s *TrackingService) UpdateLocation(ctx context.Context, req UpdateLocationRequest) (*domain.TripState, error) {
	if !geo.IsValidLatitude(req.Lat) || !geo.IsValidLongitude(req.Lng) {
		return nil, ErrInvalidLocation
	}
	if req.AccuracyM < 0 || req.SpeedKmh < 0 || req.Heading < 0 || req.Heading >= 360 {
		return nil, ErrInvalidLocation
	}

	entry, err := s.trips.Get(req.TripID)
	if err != nil {
		return nil, ErrTripNotFound
	}

	now := time.Now()
	ts := req.Timestamp
	if ts.IsZero() {
		ts = now
	}

	sample := domain.LocationSample{
		Lat:       req.Lat,
		Lng:       req.Lng,
		AccuracyM: req.AccuracyM,
		SpeedKmh:  req.SpeedKmh,
		Heading:   req.Heading,
		Timestamp: ts,
	}

	entry.Lock()
	if entry.State.Status != domain.TripStatusActive {
		// Lost a race with a concurrent stop; the trip is gone.
		entry.Unlock()
		return nil, ErrTripNotFound
	}
	result := s.engine.Apply(entry.State, sample, now)
	snapshot := entry.State.Clone()
	entry.Unlock()

	s.bridge.SaveSnapshot(ctx, snapshot)

	location := map[string]any{"lat": sample.Lat, "lng": sample.Lng}
	s.publish(ctx, event.New(event.TypeLocationUpdated, req.TripID, now, map[string]any{
		"location": location,
		"progress": progressPayload(snapshot.Progress),
	}))

	if result.PickupTriggered {
		s.publish(ctx, event.New(event.TypeGeofenceTriggered, req.TripID, now, map[string]any{
			"type":     "pickup",
			"location": location,
		}))
	}
	if result.DropoffTriggered {
		s.publish(ctx, event.New(event.TypeGeofenceTriggered, req.TripID, now, map[string]any{
			"type":     "dropoff",
			"location": location,
		}))
	}
	if result.ETAChanged {
		s.publish(ctx, event.New(event.TypeETAUpdated, req.TripID, now, map[string]any{
			"progress": progressPayload(snapshot.Progress),
		}))
	}

	return snapshot, nil
}

// GetStatus returns a consistent snapshot of the trip's current state.
func (s *TrackingService) GetStatus(ctx context.Context, tripID string) (*domain.TripState, error) {
	entry, err := s.trips.Get(tripID)
	if err != nil {
		return nil, ErrTripNotFound
	}

	entry.Lock()
	snapshot := entry.State.Clone()
	entry.Unlock()

	return snapshot, nil
}

// GetHistory returns up to limit samples, optionally restricted to the
// [since, until] time range. Limit is clamped to [1,100].
func (s *TrackingService) GetHistory(ctx context.Context, tripID string, limit int, since, until time.Time) ([]domain.LocationSample, error) {
	entry, err := s.trips.Get(tripID)
	if err != nil {
		return nil, ErrTripNotFound
	}

	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	entry.Lock()
	snapshot := entry.State.Clone()
	entry.Unlock()

	filtered := make([]domain.LocationSample, 0, len(snapshot.History))
	for _, sample := range snapshot.History {
		if !since.IsZero() && sample.Timestamp.Before(since) {
			continue
		}
		if !until.IsZero() && sample.Timestamp.After(until) {
			continue
		}
		filtered = append(filtered, sample)
	}

	if len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered, nil
}

// GetAnalytics computes post-hoc statistics for the trip.
func (s *TrackingService) GetAnalytics(ctx context.Context, tripID string) (*domain.TripAnalytics, error) {
	entry, err := s.trips.Get(tripID)
	if err != nil {
		return nil, ErrTripNotFound
	}

	entry.Lock()
	snapshot := entry.State.Clone()
	entry.Unlock()

	stats, err := analytics.Compute(snapshot.History, snapshot.Route, snapshot.StartedAt)
	if err != nil {
		if errors.Is(err, analytics.ErrInsufficientData) {
			return nil, ErrAnalyticsUnavailable
		}
		return nil, err
	}
	return &stats, nil
}

// StopTracking finalizes a trip and removes it from the registry. Every
// stop goes through here regardless of trigger, so explicit stops and
// reaper-driven expiry have identical side effects. Stopping an unknown or
// already-stopped trip returns ErrTripNotFound.
func (s *TrackingService) StopTracking(ctx context.Context, tripID string, reason domain.StopReason) (*domain.TripState, error) {
	entry, err := s.trips.Remove(tripID)
	if err != nil {
		return nil, ErrTripNotFound
	}

	now := time.Now()

	entry.Lock()
	entry.State.Status = domain.TripStatusStopped
	snapshot := entry.State.Clone()
	entry.Unlock()

	s.bridge.Finalize(ctx, snapshot, reason)

	summary := map[string]any{
		"started_at":   snapshot.StartedAt.UTC().Format(time.RFC3339),
		"last_update":  snapshot.LastUpdate.UTC().Format(time.RFC3339),
		"sample_count": len(snapshot.History),
		"stage":        string(snapshot.Progress.Stage),
	}
	if stats, err := analytics.Compute(snapshot.History, snapshot.Route, snapshot.StartedAt); err == nil {
		summary["total_distance_km"] = stats.TotalDistanceKm
		summary["total_time_min"] = stats.TotalTimeMin
	}

	s.publish(ctx, event.New(event.TypeTrackingStopped, tripID, now, map[string]any{
		"reason":  string(reason),
		"summary": summary,
	}))

	return snapshot, nil
}

// ListActive returns snapshots of every live trip.
func (s *TrackingService) ListActive(ctx context.Context) []*domain.TripState {
	entries := s.trips.List()

	snapshots := make([]*domain.TripState, 0, len(entries))
	for _, entry := range entries {
		entry.Lock()
		snapshots = append(snapshots, entry.State.Clone())
		entry.Unlock()
	}
	return snapshots
}

// CleanupExpired stops every trip whose last update is older than maxAge,
// with reason expired. Returns the number of trips stopped. An unset
// maxAge means the configured trip age limit, so a bare cleanup request
// cannot sweep live trips.
func (s *TrackingService) CleanupExpired(ctx context.Context, maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = s.cfg.MaxTripAge
	}
	if maxAge < cleanupMinAge {
		maxAge = cleanupMinAge
	}

	cutoff := time.Now().Add(-maxAge)

	var expired []string
	for _, entry := range s.trips.List() {
		entry.Lock()
		if entry.State.LastUpdate.Before(cutoff) {
			expired = append(expired, entry.State.TripID)
		}
		entry.Unlock()
	}

	stopped := 0
	for _, id := range expired {
		if _, err := s.StopTracking(ctx, id, domain.StopReasonExpired); err == nil {
			stopped++
		}
	}
	return stopped
}

func (s *TrackingService) resolveWaypoints(ctx context.Context, req StartTrackingRequest) (domain.Coordinate, domain.Coordinate, error) {
	pickup, dropoff := req.Pickup, req.Dropoff

	if pickup == nil || dropoff == nil {
		if req.BookingID == "" || s.bookings == nil {
			return domain.Coordinate{}, domain.Coordinate{}, ErrInvalidTripData
		}
		booking, err := s.bookings.GetByID(ctx, req.BookingID)
		if err != nil {
			return domain.Coordinate{}, domain.Coordinate{}, ErrInvalidTripData
		}
		if pickup == nil {
			pickup = &booking.Pickup
		}
		if dropoff == nil {
			dropoff = &booking.Dropoff
		}
	}

	if !geo.IsValidLatitude(pickup.Lat) || !geo.IsValidLongitude(pickup.Lng) ||
		!geo.IsValidLatitude(dropoff.Lat) || !geo.IsValidLongitude(dropoff.Lng) {
		return domain.Coordinate{}, domain.Coordinate{}, ErrInvalidTripData
	}

	return *pickup, *dropoff, nil
}

func (s *TrackingService) publish(ctx context.Context, ev event.Event) {
	if err := s.bus.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("type", string(ev.Type)).Msg("publish tracking event")
	}
}

func progressPayload(p domain.Progress) map[string]any {
	return map[string]any{
		"distance_to_pickup_km":  p.DistanceToPickupKm,
		"distance_to_dropoff_km": p.DistanceToDropoffKm,
		"eta_to_pickup_min":      p.ETAToPickupMin,
		"eta_to_dropoff_min":     p.ETAToDropoffMin,
		"is_at_pickup":           p.IsAtPickup,
		"is_at_dropoff":          p.IsAtDropoff,
		"stage":                  string(p.Stage),
	}
}
