package tests

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"tracking/internal/domain"
	"tracking/internal/event"
	"tracking/internal/service"
)

// ──────────────────────────────────────────────
// 4. GEOFENCE AND EVENT FLOW
// ──────────────────────────────────────────────

func TestGeofence_PickupArrivalTriggersOnce(t *testing.T) {
	t.Parallel()

	svc, bus := newTestService(newTestConfig(), nil)
	startTestTrip(t, svc, "trip-1")

	// Arrive inside the pickup zone.
	state, err := svc.UpdateLocation(context.Background(), service.UpdateLocationRequest{
		TripID: "trip-1", Lat: testPickup.Lat, Lng: testPickup.Lng, SpeedKmh: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !state.PickupZone.Triggered {
		t.Error("expected pickup zone triggered")
	}
	if !state.Progress.IsAtPickup {
		t.Error("expected IsAtPickup set")
	}
	if state.Progress.Stage != domain.StageAtPickup {
		t.Errorf("expected stage %s, got %s", domain.StageAtPickup, state.Progress.Stage)
	}

	// Linger inside the zone: no repeated trigger event.
	for i := 0; i < 3; i++ {
		if _, err := svc.UpdateLocation(context.Background(), service.UpdateLocationRequest{
			TripID: "trip-1", Lat: testPickup.Lat + 0.0001, Lng: testPickup.Lng, SpeedKmh: 2,
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	triggers := bus.EventsOfType(event.TypeGeofenceTriggered)
	if len(triggers) != 1 {
		t.Fatalf("expected 1 geofence_triggered event, got %d", len(triggers))
	}
	if triggers[0].Data["type"] != "pickup" {
		t.Errorf("expected pickup trigger, got %v", triggers[0].Data["type"])
	}
}

func TestGeofence_DropoffIgnoredBeforePickup(t *testing.T) {
	t.Parallel()

	svc, bus := newTestService(newTestConfig(), nil)
	startTestTrip(t, svc, "trip-1")

	// Drive straight to the dropoff without ever visiting the pickup.
	state, err := svc.UpdateLocation(context.Background(), service.UpdateLocationRequest{
		TripID: "trip-1", Lat: testDropoff.Lat, Lng: testDropoff.Lng, SpeedKmh: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if state.DropoffZone.Triggered {
		t.Error("dropoff must not trigger before pickup")
	}
	if state.Progress.IsAtDropoff {
		t.Error("IsAtDropoff must not be set before pickup")
	}
	if len(bus.EventsOfType(event.TypeGeofenceTriggered)) != 0 {
		t.Errorf("expected no geofence events, got %d", len(bus.EventsOfType(event.TypeGeofenceTriggered)))
	}
}

func TestGeofence_FullTripProgression(t *testing.T) {
	t.Parallel()

	svc, bus := newTestService(newTestConfig(), nil)
	startTestTrip(t, svc, "trip-1")

	ctx := context.Background()
	now := time.Now()

	// Arrive at pickup.
	state, err := svc.UpdateLocation(ctx, service.UpdateLocationRequest{
		TripID: "trip-1", Lat: testPickup.Lat, Lng: testPickup.Lng, SpeedKmh: 15, Timestamp: now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Progress.Stage != domain.StageAtPickup {
		t.Fatalf("expected stage %s, got %s", domain.StageAtPickup, state.Progress.Stage)
	}

	// Leave the pickup zone heading for the dropoff.
	state = driveTo(t, svc, "trip-1", testPickup, testDropoff, 4, 30, now, time.Minute)
	if state.Progress.Stage != domain.StageAtDropoff {
		t.Errorf("expected stage %s at journey end, got %s", domain.StageAtDropoff, state.Progress.Stage)
	}
	if !state.DropoffZone.Triggered {
		t.Error("expected dropoff zone triggered after pickup")
	}

	triggers := bus.EventsOfType(event.TypeGeofenceTriggered)
	if len(triggers) != 2 {
		t.Fatalf("expected 2 geofence_triggered events, got %d", len(triggers))
	}
	if triggers[0].Data["type"] != "pickup" || triggers[1].Data["type"] != "dropoff" {
		t.Errorf("expected pickup then dropoff, got %v then %v", triggers[0].Data["type"], triggers[1].Data["type"])
	}
}

func TestStageNeverRegresses(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(newTestConfig(), nil)
	startTestTrip(t, svc, "trip-1")

	ctx := context.Background()

	// Arrive at pickup, then wander back out of the zone.
	if _, err := svc.UpdateLocation(ctx, service.UpdateLocationRequest{
		TripID: "trip-1", Lat: testPickup.Lat, Lng: testPickup.Lng, SpeedKmh: 10,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := svc.UpdateLocation(ctx, service.UpdateLocationRequest{
		TripID: "trip-1", Lat: testPickup.Lat + 0.01, Lng: testPickup.Lng, SpeedKmh: 20,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Outside the pickup zone after triggering it the stage advances to
	// picked up; it never falls back to enroute.
	if state.Progress.Stage != domain.StagePickedUp {
		t.Errorf("expected stage %s, got %s", domain.StagePickedUp, state.Progress.Stage)
	}
	if !state.PickupZone.Triggered {
		t.Error("pickup trigger must stay set")
	}
}

func TestLocationUpdate_EmitsProgressEvents(t *testing.T) {
	t.Parallel()

	svc, bus := newTestService(newTestConfig(), nil)
	startTestTrip(t, svc, "trip-1")

	state, err := svc.UpdateLocation(context.Background(), service.UpdateLocationRequest{
		TripID: "trip-1", Lat: testDropoff.Lat, Lng: testDropoff.Lng, SpeedKmh: 25,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updates := bus.EventsOfType(event.TypeLocationUpdated)
	if len(updates) != 1 {
		t.Fatalf("expected 1 location_updated event, got %d", len(updates))
	}
	progress, ok := updates[0].Data["progress"].(map[string]any)
	if !ok {
		t.Fatal("expected progress payload in location_updated")
	}
	if progress["stage"] != string(state.Progress.Stage) {
		t.Errorf("expected stage %s in payload, got %v", state.Progress.Stage, progress["stage"])
	}
	if progress["distance_to_pickup_km"] != state.Progress.DistanceToPickupKm {
		t.Errorf("payload distance mismatch: %v vs %f", progress["distance_to_pickup_km"], state.Progress.DistanceToPickupKm)
	}
}

func TestETAUpdated_EmittedOnSignificantChange(t *testing.T) {
	t.Parallel()

	svc, bus := newTestService(newTestConfig(), nil)
	startTestTrip(t, svc, "trip-1")

	// The first report far from the pickup produces an ETA well above the
	// zero baseline, so an eta_updated event fires.
	if _, err := svc.UpdateLocation(context.Background(), service.UpdateLocationRequest{
		TripID: "trip-1", Lat: testDropoff.Lat, Lng: testDropoff.Lng, SpeedKmh: 25,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	etas := bus.EventsOfType(event.TypeETAUpdated)
	if len(etas) != 1 {
		t.Fatalf("expected 1 eta_updated event, got %d", len(etas))
	}

	// A nearly identical report changes the ETA by under a minute and is
	// debounced.
	if _, err := svc.UpdateLocation(context.Background(), service.UpdateLocationRequest{
		TripID: "trip-1", Lat: testDropoff.Lat + 0.00001, Lng: testDropoff.Lng, SpeedKmh: 25,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(bus.EventsOfType(event.TypeETAUpdated)); got != 1 {
		t.Errorf("expected debounced eta_updated count 1, got %d", got)
	}
}

// ──────────────────────────────────────────────
// 5. CONCURRENT TRIPS
// ──────────────────────────────────────────────

func TestConcurrentTrips_UpdateIndependently(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(newTestConfig(), nil)

	const trips = 20
	const updatesPerTrip = 25

	for i := 0; i < trips; i++ {
		startTestTrip(t, svc, fmt.Sprintf("trip-%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < trips; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tripID := fmt.Sprintf("trip-%d", n)
			for j := 0; j < updatesPerTrip; j++ {
				_, err := svc.UpdateLocation(context.Background(), service.UpdateLocationRequest{
					TripID:   tripID,
					Lat:      testPickup.Lat + float64(j)*0.001,
					Lng:      testPickup.Lng,
					SpeedKmh: 20,
				})
				if err != nil {
					t.Errorf("trip %s update %d: %v", tripID, j, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	active := svc.ListActive(context.Background())
	if len(active) != trips {
		t.Fatalf("expected %d active trips, got %d", trips, len(active))
	}
	for _, state := range active {
		if len(state.History) != updatesPerTrip {
			t.Errorf("trip %s: expected %d samples, got %d", state.TripID, updatesPerTrip, len(state.History))
		}
		if state.History[len(state.History)-1].Sequence != updatesPerTrip-1 {
			t.Errorf("trip %s: unexpected final sequence %d", state.TripID, state.History[len(state.History)-1].Sequence)
		}
	}
}
