package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tracking/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// mapErrorToHTTPStatus maps service errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, service.ErrTripNotFound):
		return http.StatusNotFound

	// Validation errors
	case errors.Is(err, service.ErrInvalidTripData),
		errors.Is(err, service.ErrInvalidLocation):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrAlreadyTracking):
		return http.StatusConflict

	// Analytics needs more data before it means anything
	case errors.Is(err, service.ErrAnalyticsUnavailable):
		return http.StatusUnprocessableEntity

	default:
		return http.StatusInternalServerError
	}
}
