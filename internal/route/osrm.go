package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"tracking/internal/domain"
)

// OSRMPlanner calls an OSRM-compatible routing server. Every request is
// bounded by the client timeout so a slow provider cannot stall trip start.
type OSRMPlanner struct {
	client  *http.Client
	baseURL string
	profile string
}

// NewOSRMPlanner creates an OSRMPlanner against the given base URL.
func NewOSRMPlanner(baseURL string, timeout time.Duration) *OSRMPlanner {
	return &OSRMPlanner{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: "driving",
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry string  `json:"geometry"`
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
	} `json:"routes"`
}

func (p *OSRMPlanner) PlanRoute(ctx context.Context, origin, dest domain.Coordinate, waypoints []domain.Coordinate) (domain.Route, error) {
	if p.baseURL == "" {
		return domain.Route{}, errors.New("osrm base url not configured")
	}

	// OSRM wants lng,lat pairs separated by semicolons, waypoints between
	// origin and destination.
	coords := make([]string, 0, len(waypoints)+2)
	coords = append(coords, fmt.Sprintf("%f,%f", origin.Lng, origin.Lat))
	for _, wp := range waypoints {
		coords = append(coords, fmt.Sprintf("%f,%f", wp.Lng, wp.Lat))
	}
	coords = append(coords, fmt.Sprintf("%f,%f", dest.Lng, dest.Lat))

	url := fmt.Sprintf("%s/route/v1/%s/%s?overview=full", p.baseURL, p.profile, strings.Join(coords, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Route{}, fmt.Errorf("create route request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.Route{}, fmt.Errorf("route request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Route{}, fmt.Errorf("route request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.Route{}, fmt.Errorf("decode route response: %w", err)
	}

	if parsed.Code != "Ok" || len(parsed.Routes) == 0 {
		return domain.Route{}, fmt.Errorf("route response: code=%s routes=%d", parsed.Code, len(parsed.Routes))
	}

	best := parsed.Routes[0]
	return domain.Route{
		Polyline:    best.Geometry,
		DistanceKm:  best.Distance / 1000,
		DurationMin: int(math.Round(best.Duration / 60)),
		Waypoints:   append([]domain.Coordinate(nil), waypoints...),
		Source:      domain.RouteSourceExternal,
	}, nil
}

var _ Planner = (*OSRMPlanner)(nil)
