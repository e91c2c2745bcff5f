package domain

// TripAnalytics is the post-hoc summary of a trip's location history.
// It is recomputed on request, never treated as authoritative state.
type TripAnalytics struct {
	TotalDistanceKm float64
	AverageSpeedKmh float64
	TotalTimeMin    int
	StopsCount      int
	// EfficiencyPct compares planned route distance against actual travel;
	// 100 means the driver followed the plan exactly. Zero when undefined.
	EfficiencyPct int
}
