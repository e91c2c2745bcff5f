package tests

import (
	"context"
	"testing"
	"time"

	"tracking/internal/config"
	"tracking/internal/domain"
	"tracking/internal/event"
	"tracking/internal/persist"
	"tracking/internal/progress"
	"tracking/internal/registry"
	"tracking/internal/repository"
	"tracking/internal/route"
	"tracking/internal/service"
)

// Fixed waypoints in central Bangalore, roughly 4.5 km apart.
var (
	testPickup  = domain.Coordinate{Lat: 12.9716, Lng: 77.5946}
	testDropoff = domain.Coordinate{Lat: 12.9352, Lng: 77.6245}
)

// newTestConfig returns the engine defaults used across the suite.
func newTestConfig() config.TrackingConfig {
	return config.TrackingConfig{
		GeofenceRadiusKm: 0.1,
		UpdateTimeout:    60 * time.Second,
		MaxTripAge:       24 * time.Hour,
		MaxHistory:       100,
		CruisingSpeedKmh: 25,
		ETABufferPct:     20,
		ETADebounceMin:   1,
		ReaperInterval:   30 * time.Second,
		CacheTTL:         time.Hour,
		PersistOpTimeout: 2 * time.Second,
	}
}

// newTestService wires a TrackingService against in-memory collaborators:
// a memory event bus, a tierless persistence bridge and the great-circle
// route fallback.
func newTestService(cfg config.TrackingConfig, bookings repository.BookingRepository) (*service.TrackingService, *event.MemoryBus) {
	bus := event.NewMemoryBus()
	svc := service.NewTrackingService(
		cfg,
		registry.New(),
		progress.NewEngine(cfg.CruisingSpeedKmh, cfg.ETABufferPct, cfg.ETADebounceMin),
		route.NewResolver(nil, route.NewFallbackPlanner(cfg.CruisingSpeedKmh, cfg.ETABufferPct)),
		persist.NewBridge(nil, nil, cfg.CacheTTL, cfg.PersistOpTimeout),
		bus,
		bookings,
	)
	return svc, bus
}

// interpolate returns steps coordinates evenly spaced along the straight
// line from a to b, ending exactly at b.
func interpolate(a, b domain.Coordinate, steps int) []domain.Coordinate {
	points := make([]domain.Coordinate, 0, steps)
	for i := 1; i <= steps; i++ {
		f := float64(i) / float64(steps)
		points = append(points, domain.Coordinate{
			Lat: a.Lat + (b.Lat-a.Lat)*f,
			Lng: a.Lng + (b.Lng-a.Lng)*f,
		})
	}
	return points
}

// driveTo feeds a synthetic straight-line movement into the service, one
// update per interpolated point, with timestamps spaced by gap.
func driveTo(t *testing.T, svc *service.TrackingService, tripID string, from, to domain.Coordinate, steps int, speedKmh float64, start time.Time, gap time.Duration) *domain.TripState {
	t.Helper()

	var state *domain.TripState
	for i, point := range interpolate(from, to, steps) {
		var err error
		state, err = svc.UpdateLocation(context.Background(), service.UpdateLocationRequest{
			TripID:    tripID,
			Lat:       point.Lat,
			Lng:       point.Lng,
			SpeedKmh:  speedKmh,
			Timestamp: start.Add(time.Duration(i+1) * gap),
		})
		if err != nil {
			t.Fatalf("update %d: unexpected error: %v", i, err)
		}
	}
	return state
}

// startTestTrip starts a trip with the fixed waypoints and fails the test
// on error.
func startTestTrip(t *testing.T, svc *service.TrackingService, tripID string) *domain.TripState {
	t.Helper()

	pickup, dropoff := testPickup, testDropoff
	state, err := svc.StartTracking(context.Background(), service.StartTrackingRequest{
		TripID:     tripID,
		BookingID:  "booking-" + tripID,
		DriverID:   "driver-1",
		CustomerID: "customer-1",
		Pickup:     &pickup,
		Dropoff:    &dropoff,
	})
	if err != nil {
		t.Fatalf("start tracking: unexpected error: %v", err)
	}
	return state
}
