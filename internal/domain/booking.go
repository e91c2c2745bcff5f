package domain

// Booking is the read model of a delivery order owned by the booking
// collaborator. The engine only reads identities and waypoint coordinates.
type Booking struct {
	ID         string
	DriverID   string
	CustomerID string
	Pickup     Coordinate
	Dropoff    Coordinate
}
