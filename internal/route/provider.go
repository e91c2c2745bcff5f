// Package route plans the pickup-to-dropoff path computed at trip start.
// A remote OSRM-style provider is preferred; a deterministic great-circle
// fallback guarantees StartTracking never fails on routing.
package route

import (
	"context"

	"github.com/rs/zerolog/log"

	"tracking/internal/domain"
	"tracking/internal/geo"
)

// Planner produces a route between two points with optional waypoints.
type Planner interface {
	PlanRoute(ctx context.Context, origin, dest domain.Coordinate, waypoints []domain.Coordinate) (domain.Route, error)
}

// FallbackPlanner computes a direct great-circle route locally. It never
// errors, which makes it the terminal link of the resolver chain.
type FallbackPlanner struct {
	CruisingSpeedKmh float64
	ETABufferPct     float64
}

// NewFallbackPlanner creates a FallbackPlanner with the engine's ETA tuning.
func NewFallbackPlanner(cruisingSpeedKmh, etaBufferPct float64) *FallbackPlanner {
	return &FallbackPlanner{CruisingSpeedKmh: cruisingSpeedKmh, ETABufferPct: etaBufferPct}
}

func (p *FallbackPlanner) PlanRoute(_ context.Context, origin, dest domain.Coordinate, waypoints []domain.Coordinate) (domain.Route, error) {
	distanceKm := geo.HaversineKm(origin.Lat, origin.Lng, dest.Lat, dest.Lng)

	return domain.Route{
		DistanceKm:  distanceKm,
		DurationMin: geo.ETAMinutes(distanceKm, 0, p.CruisingSpeedKmh, p.ETABufferPct),
		Waypoints:   append([]domain.Coordinate(nil), waypoints...),
		Source:      domain.RouteSourceFallback,
	}, nil
}

// Resolver tries the remote planner first and falls back on any error.
// Its PlanRoute never returns a non-nil error.
type Resolver struct {
	remote   Planner
	fallback *FallbackPlanner
}

// NewResolver creates a Resolver. Remote may be nil, in which case every
// plan goes through the fallback.
func NewResolver(remote Planner, fallback *FallbackPlanner) *Resolver {
	return &Resolver{remote: remote, fallback: fallback}
}

func (r *Resolver) PlanRoute(ctx context.Context, origin, dest domain.Coordinate, waypoints []domain.Coordinate) (domain.Route, error) {
	if r.remote != nil {
		planned, err := r.remote.PlanRoute(ctx, origin, dest, waypoints)
		if err == nil {
			return planned, nil
		}
		log.Warn().Err(err).Msg("remote route planning failed, using fallback")
	}

	return r.fallback.PlanRoute(ctx, origin, dest, waypoints)
}

var (
	_ Planner = (*FallbackPlanner)(nil)
	_ Planner = (*Resolver)(nil)
)
