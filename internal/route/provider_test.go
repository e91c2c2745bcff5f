package route

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tracking/internal/domain"
	"tracking/internal/geo"
)

var (
	testPickup  = domain.Coordinate{Lat: 12.9716, Lng: 77.5946}
	testDropoff = domain.Coordinate{Lat: 12.9789, Lng: 77.5917}
)

func TestFallbackPlanner_DirectDistance(t *testing.T) {
	t.Parallel()

	planner := NewFallbackPlanner(25, 20)

	planned, err := planner.PlanRoute(context.Background(), testPickup, testDropoff, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := geo.HaversineKm(testPickup.Lat, testPickup.Lng, testDropoff.Lat, testDropoff.Lng)
	if math.Abs(planned.DistanceKm-want) > 1e-12 {
		t.Errorf("DistanceKm = %v, want direct great-circle %v", planned.DistanceKm, want)
	}
	if planned.Source != domain.RouteSourceFallback {
		t.Errorf("Source = %q, want fallback", planned.Source)
	}
	if planned.DurationMin <= 0 {
		t.Errorf("DurationMin = %d, want > 0", planned.DurationMin)
	}
}

func TestOSRMPlanner_MapsResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"geometry":"abc123","distance":1250.0,"duration":300.0}]}`))
	}))
	defer srv.Close()

	planner := NewOSRMPlanner(srv.URL, time.Second)

	planned, err := planner.PlanRoute(context.Background(), testPickup, testDropoff, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if planned.Source != domain.RouteSourceExternal {
		t.Errorf("Source = %q, want external", planned.Source)
	}
	if planned.Polyline != "abc123" {
		t.Errorf("Polyline = %q, want abc123", planned.Polyline)
	}
	if math.Abs(planned.DistanceKm-1.25) > 1e-9 {
		t.Errorf("DistanceKm = %v, want 1.25", planned.DistanceKm)
	}
	if planned.DurationMin != 5 {
		t.Errorf("DurationMin = %d, want 5", planned.DurationMin)
	}
}

func TestOSRMPlanner_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	planner := NewOSRMPlanner(srv.URL, time.Second)
	if _, err := planner.PlanRoute(context.Background(), testPickup, testDropoff, nil); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestResolver_FallsBackOnTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	remote := NewOSRMPlanner(srv.URL, 20*time.Millisecond)
	resolver := NewResolver(remote, NewFallbackPlanner(25, 20))

	planned, err := resolver.PlanRoute(context.Background(), testPickup, testDropoff, nil)
	if err != nil {
		t.Fatalf("resolver must never error, got %v", err)
	}

	if planned.Source != domain.RouteSourceFallback {
		t.Errorf("Source = %q, want fallback after timeout", planned.Source)
	}
	want := geo.HaversineKm(testPickup.Lat, testPickup.Lng, testDropoff.Lat, testDropoff.Lng)
	if math.Abs(planned.DistanceKm-want) > 1e-12 {
		t.Errorf("DistanceKm = %v, want direct great-circle %v", planned.DistanceKm, want)
	}
}

func TestResolver_NilRemoteUsesFallback(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(nil, NewFallbackPlanner(25, 20))

	planned, err := resolver.PlanRoute(context.Background(), testPickup, testDropoff, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if planned.Source != domain.RouteSourceFallback {
		t.Errorf("Source = %q, want fallback", planned.Source)
	}
}
