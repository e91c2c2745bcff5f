package analytics

import (
	"errors"
	"testing"
	"time"

	"tracking/internal/domain"
	"tracking/internal/geo"
)

func TestCompute_RequiresTwoSamples(t *testing.T) {
	t.Parallel()

	start := time.Now()

	if _, err := Compute(nil, domain.Route{}, start); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("empty history: expected ErrInsufficientData, got %v", err)
	}

	one := []domain.LocationSample{{Lat: 12.97, Lng: 77.59, Timestamp: start}}
	if _, err := Compute(one, domain.Route{}, start); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("single sample: expected ErrInsufficientData, got %v", err)
	}
}

func TestCompute_DistanceAndSpeed(t *testing.T) {
	t.Parallel()

	start := time.Now()
	history := []domain.LocationSample{
		{Lat: 12.9716, Lng: 77.5946, Timestamp: start},
		{Lat: 12.9750, Lng: 77.5930, Timestamp: start.Add(3 * time.Minute)},
		{Lat: 12.9789, Lng: 77.5917, Timestamp: start.Add(6 * time.Minute)},
	}

	got, err := Compute(history, domain.Route{}, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantKm := geo.HaversineKm(12.9716, 77.5946, 12.9750, 77.5930) +
		geo.HaversineKm(12.9750, 77.5930, 12.9789, 77.5917)
	if diff := got.TotalDistanceKm - wantKm; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("TotalDistanceKm = %v, want %v", got.TotalDistanceKm, wantKm)
	}

	wantSpeed := wantKm / (6.0 / 60.0)
	if diff := got.AverageSpeedKmh - wantSpeed; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("AverageSpeedKmh = %v, want %v", got.AverageSpeedKmh, wantSpeed)
	}

	if got.TotalTimeMin != 6 {
		t.Errorf("TotalTimeMin = %d, want 6", got.TotalTimeMin)
	}
}

func TestCompute_StopDetection(t *testing.T) {
	t.Parallel()

	start := time.Now()
	history := []domain.LocationSample{
		{Lat: 12.9716, Lng: 77.5946, Timestamp: start},
		// Same point 45s later: a real stop.
		{Lat: 12.9716, Lng: 77.5946, Timestamp: start.Add(45 * time.Second)},
		// Same point 10s later: jitter, not a stop (gap too short).
		{Lat: 12.9716, Lng: 77.5946, Timestamp: start.Add(55 * time.Second)},
		// Moved 400m over 60s: not a stop (displacement too large).
		{Lat: 12.9752, Lng: 77.5946, Timestamp: start.Add(115 * time.Second)},
	}

	got, err := Compute(history, domain.Route{}, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.StopsCount != 1 {
		t.Errorf("StopsCount = %d, want 1", got.StopsCount)
	}
}

func TestCompute_Efficiency(t *testing.T) {
	t.Parallel()

	start := time.Now()
	history := []domain.LocationSample{
		{Lat: 12.9716, Lng: 77.5946, Timestamp: start},
		{Lat: 12.9789, Lng: 77.5917, Timestamp: start.Add(5 * time.Minute)},
	}
	actualKm := geo.HaversineKm(12.9716, 77.5946, 12.9789, 77.5917)

	// Planned distance equal to actual travel: 100% efficient.
	got, err := Compute(history, domain.Route{DistanceKm: actualKm}, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.EfficiencyPct != 100 {
		t.Errorf("EfficiencyPct = %d, want 100", got.EfficiencyPct)
	}

	// Detour: actual travel twice the plan, 50% efficient.
	got, err = Compute(history, domain.Route{DistanceKm: actualKm / 2}, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.EfficiencyPct != 50 {
		t.Errorf("EfficiencyPct = %d, want 50", got.EfficiencyPct)
	}
}

func TestCompute_ZeroTravelOmitsEfficiency(t *testing.T) {
	t.Parallel()

	start := time.Now()
	history := []domain.LocationSample{
		{Lat: 12.9716, Lng: 77.5946, Timestamp: start},
		{Lat: 12.9716, Lng: 77.5946, Timestamp: start.Add(time.Minute)},
	}

	got, err := Compute(history, domain.Route{DistanceKm: 2}, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.EfficiencyPct != 0 {
		t.Errorf("EfficiencyPct = %d, want 0 when no travel", got.EfficiencyPct)
	}
}
