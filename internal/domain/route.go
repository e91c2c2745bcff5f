package domain

// RouteSource identifies which planner produced a route.
type RouteSource string

const (
	RouteSourceExternal RouteSource = "external"
	RouteSourceFallback RouteSource = "fallback"
)

// Route is the planned path between pickup and dropoff, computed once at
// trip start. Polyline is empty when the fallback planner produced it.
type Route struct {
	Polyline    string
	DistanceKm  float64
	DurationMin int
	Waypoints   []Coordinate
	Source      RouteSource
}
