// Package analytics computes post-hoc trip statistics from a trip's
// location history. Results are recomputed on request and never stored as
// authoritative state.
package analytics

import (
	"errors"
	"math"
	"time"

	"tracking/internal/domain"
	"tracking/internal/geo"
)

// ErrInsufficientData is returned when fewer than two samples exist, so
// callers report "unavailable" instead of implying a zero measurement.
var ErrInsufficientData = errors.New("not enough location samples for analytics")

// Thresholds for stop detection: low displacement sustained over time.
const (
	stopDisplacementKm = 0.001 // 1 meter
	stopMinGap         = 30 * time.Second
)

// Compute summarizes an ordered location history against the planned route.
func Compute(history []domain.LocationSample, planned domain.Route, startedAt time.Time) (domain.TripAnalytics, error) {
	if len(history) < 2 {
		return domain.TripAnalytics{}, ErrInsufficientData
	}

	var totalKm float64
	var stops int
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		legKm := geo.HaversineKm(prev.Lat, prev.Lng, cur.Lat, cur.Lng)
		totalKm += legKm

		if legKm < stopDisplacementKm && cur.Timestamp.Sub(prev.Timestamp) > stopMinGap {
			stops++
		}
	}

	last := history[len(history)-1]
	elapsed := last.Timestamp.Sub(history[0].Timestamp)

	var avgKmh float64
	if hours := elapsed.Hours(); hours > 0 {
		avgKmh = totalKm / hours
	}

	result := domain.TripAnalytics{
		TotalDistanceKm: totalKm,
		AverageSpeedKmh: avgKmh,
		TotalTimeMin:    int(math.Round(last.Timestamp.Sub(startedAt).Minutes())),
		StopsCount:      stops,
	}

	if totalKm > 0 && planned.DistanceKm > 0 {
		result.EfficiencyPct = int(math.Round(planned.DistanceKm / totalKm * 100))
	}

	return result, nil
}
