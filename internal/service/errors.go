package service

import "errors"

var (
	// ErrAlreadyTracking is returned when starting tracking for a trip that
	// already has a live entry.
	ErrAlreadyTracking = errors.New("trip already being tracked")

	// ErrTripNotFound is returned when the trip has no live entry.
	ErrTripNotFound = errors.New("trip not found")

	// ErrInvalidTripData is returned when a start request is missing
	// required identities or coordinates.
	ErrInvalidTripData = errors.New("invalid trip data")

	// ErrInvalidLocation is returned when location coordinates are out of
	// range. The update is rejected before any state mutation.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrAnalyticsUnavailable is returned when a trip has too few samples
	// for a meaningful analytics computation.
	ErrAnalyticsUnavailable = errors.New("analytics unavailable")
)
