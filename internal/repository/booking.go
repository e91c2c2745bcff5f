package repository

import (
	"context"

	"tracking/internal/domain"
)

// BookingRepository reads delivery orders from the booking collaborator's
// store. The tracking engine never writes to it.
type BookingRepository interface {
	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
}
