package postgres

import (
	"context"
	"database/sql"
	"errors"

	"tracking/internal/domain"
	"tracking/internal/repository"
)

// BookingRepository is a read-only PostgreSQL implementation of
// repository.BookingRepository against the booking collaborator's table.
type BookingRepository struct {
	db *sql.DB
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `
		SELECT id, driver_id, customer_id, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng
		FROM bookings
		WHERE id = $1
	`

	var booking domain.Booking
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&booking.ID,
		&booking.DriverID,
		&booking.CustomerID,
		&booking.Pickup.Lat,
		&booking.Pickup.Lng,
		&booking.Dropoff.Lat,
		&booking.Dropoff.Lng,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &booking, nil
}

var _ repository.BookingRepository = (*BookingRepository)(nil)
