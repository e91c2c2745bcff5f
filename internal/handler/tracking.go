package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tracking/internal/domain"
	"tracking/internal/service"
)

// TrackingHandler handles HTTP requests for trip tracking.
type TrackingHandler struct {
	tracking *service.TrackingService
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(tracking *service.TrackingService) *TrackingHandler {
	return &TrackingHandler{tracking: tracking}
}

// StartTrackingRequest is the HTTP request body for starting tracking.
type StartTrackingRequest struct {
	BookingID  string      `json:"booking_id"`
	DriverID   string      `json:"driver_id"`
	CustomerID string      `json:"customer_id"`
	Pickup     *Coordinate `json:"pickup,omitempty"`
	Dropoff    *Coordinate `json:"dropoff,omitempty"`
}

// Coordinate is a latitude/longitude pair on the wire.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationUpdateRequest is the HTTP request body for a location report.
type LocationUpdateRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	Speed     float64 `json:"speed,omitempty"`
	Heading   float64 `json:"heading,omitempty"`
}

// TripResponse is the HTTP representation of a trip snapshot.
type TripResponse struct {
	TripID     string            `json:"trip_id"`
	BookingID  string            `json:"booking_id"`
	DriverID   string            `json:"driver_id"`
	CustomerID string            `json:"customer_id"`
	Status     string            `json:"status"`
	StartedAt  string            `json:"started_at"`
	LastUpdate string            `json:"last_update"`
	Location   *LocationResponse `json:"location,omitempty"`
	Progress   ProgressResponse  `json:"progress"`
	Route      RouteResponse     `json:"route"`
}

// LocationResponse is one location sample on the wire.
type LocationResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	Speed     float64 `json:"speed,omitempty"`
	Heading   float64 `json:"heading,omitempty"`
	Timestamp string  `json:"timestamp"`
	Sequence  int     `json:"sequence"`
}

// ProgressResponse carries derived trip progress.
type ProgressResponse struct {
	DistanceToPickupKm  float64 `json:"distance_to_pickup_km"`
	DistanceToDropoffKm float64 `json:"distance_to_dropoff_km"`
	ETAToPickupMin      int     `json:"eta_to_pickup_min"`
	ETAToDropoffMin     int     `json:"eta_to_dropoff_min"`
	IsAtPickup          bool    `json:"is_at_pickup"`
	IsAtDropoff         bool    `json:"is_at_dropoff"`
	Stage               string  `json:"stage"`
}

// RouteResponse carries the planned route.
type RouteResponse struct {
	Polyline    string  `json:"polyline,omitempty"`
	DistanceKm  float64 `json:"distance_km"`
	DurationMin int     `json:"duration_min"`
	Source      string  `json:"source"`
}

// AnalyticsResponse carries post-hoc trip statistics.
type AnalyticsResponse struct {
	TotalDistanceKm float64 `json:"total_distance_km"`
	AverageSpeedKmh float64 `json:"average_speed_kmh"`
	TotalTimeMin    int     `json:"total_time_min"`
	StopsCount      int     `json:"stops_count"`
	EfficiencyPct   int     `json:"efficiency_pct,omitempty"`
}

// StartTracking handles POST /v1/trips/:id/track
func (h *TrackingHandler) StartTracking(c *gin.Context) {
	var req StartTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrInvalidTripData)
		return
	}

	svcReq := service.StartTrackingRequest{
		TripID:     c.Param("id"),
		BookingID:  req.BookingID,
		DriverID:   req.DriverID,
		CustomerID: req.CustomerID,
	}
	if req.Pickup != nil {
		svcReq.Pickup = &domain.Coordinate{Lat: req.Pickup.Latitude, Lng: req.Pickup.Longitude}
	}
	if req.Dropoff != nil {
		svcReq.Dropoff = &domain.Coordinate{Lat: req.Dropoff.Latitude, Lng: req.Dropoff.Longitude}
	}

	state, err := h.tracking.StartTracking(c.Request.Context(), svcReq)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tripResponse(state))
}

// UpdateLocation handles POST /v1/trips/:id/location
func (h *TrackingHandler) UpdateLocation(c *gin.Context) {
	var req LocationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrInvalidLocation)
		return
	}

	state, err := h.tracking.UpdateLocation(c.Request.Context(), service.UpdateLocationRequest{
		TripID:    c.Param("id"),
		Lat:       req.Latitude,
		Lng:       req.Longitude,
		AccuracyM: req.Accuracy,
		SpeedKmh:  req.Speed,
		Heading:   req.Heading,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tripResponse(state))
}

// GetStatus handles GET /v1/trips/:id
func (h *TrackingHandler) GetStatus(c *gin.Context) {
	state, err := h.tracking.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tripResponse(state))
}

// GetHistory handles GET /v1/trips/:id/history
func (h *TrackingHandler) GetHistory(c *gin.Context) {
	limit := intQuery(c, "limit", 100)
	since := timeQuery(c, "since")
	until := timeQuery(c, "until")

	history, err := h.tracking.GetHistory(c.Request.Context(), c.Param("id"), limit, since, until)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]LocationResponse, len(history))
	for i, s := range history {
		out[i] = locationResponse(s)
	}
	c.JSON(http.StatusOK, gin.H{"trip_id": c.Param("id"), "history": out})
}

// GetAnalytics handles GET /v1/trips/:id/analytics
func (h *TrackingHandler) GetAnalytics(c *gin.Context) {
	stats, err := h.tracking.GetAnalytics(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, AnalyticsResponse{
		TotalDistanceKm: stats.TotalDistanceKm,
		AverageSpeedKmh: stats.AverageSpeedKmh,
		TotalTimeMin:    stats.TotalTimeMin,
		StopsCount:      stats.StopsCount,
		EfficiencyPct:   stats.EfficiencyPct,
	})
}

// StopTracking handles POST /v1/trips/:id/stop
func (h *TrackingHandler) StopTracking(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	reason := domain.StopReason(req.Reason)
	if reason == "" {
		reason = domain.StopReasonCompleted
	}

	state, err := h.tracking.StopTracking(c.Request.Context(), c.Param("id"), reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tripResponse(state))
}

// ListActive handles GET /v1/trips
func (h *TrackingHandler) ListActive(c *gin.Context) {
	states := h.tracking.ListActive(c.Request.Context())

	out := make([]TripResponse, len(states))
	for i, s := range states {
		out[i] = tripResponse(s)
	}
	c.JSON(http.StatusOK, gin.H{"trips": out, "count": len(out)})
}

// CleanupExpired handles POST /v1/trips/cleanup
func (h *TrackingHandler) CleanupExpired(c *gin.Context) {
	var req struct {
		MaxAgeSeconds int `json:"max_age_seconds"`
	}
	_ = c.ShouldBindJSON(&req)

	maxAge := time.Duration(req.MaxAgeSeconds) * time.Second
	stopped := h.tracking.CleanupExpired(c.Request.Context(), maxAge)

	c.JSON(http.StatusOK, gin.H{"stopped": stopped})
}

func tripResponse(state *domain.TripState) TripResponse {
	resp := TripResponse{
		TripID:     state.TripID,
		BookingID:  state.BookingID,
		DriverID:   state.DriverID,
		CustomerID: state.CustomerID,
		Status:     string(state.Status),
		StartedAt:  state.StartedAt.UTC().Format(time.RFC3339),
		LastUpdate: state.LastUpdate.UTC().Format(time.RFC3339),
		Progress: ProgressResponse{
			DistanceToPickupKm:  state.Progress.DistanceToPickupKm,
			DistanceToDropoffKm: state.Progress.DistanceToDropoffKm,
			ETAToPickupMin:      state.Progress.ETAToPickupMin,
			ETAToDropoffMin:     state.Progress.ETAToDropoffMin,
			IsAtPickup:          state.Progress.IsAtPickup,
			IsAtDropoff:         state.Progress.IsAtDropoff,
			Stage:               string(state.Progress.Stage),
		},
		Route: RouteResponse{
			Polyline:    state.Route.Polyline,
			DistanceKm:  state.Route.DistanceKm,
			DurationMin: state.Route.DurationMin,
			Source:      string(state.Route.Source),
		},
	}
	if state.CurrentLocation != nil {
		loc := locationResponse(*state.CurrentLocation)
		resp.Location = &loc
	}
	return resp
}

func locationResponse(s domain.LocationSample) LocationResponse {
	return LocationResponse{
		Latitude:  s.Lat,
		Longitude: s.Lng,
		Accuracy:  s.AccuracyM,
		Speed:     s.SpeedKmh,
		Heading:   s.Heading,
		Timestamp: s.Timestamp.UTC().Format(time.RFC3339),
		Sequence:  s.Sequence,
	}
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func timeQuery(c *gin.Context, key string) time.Time {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
