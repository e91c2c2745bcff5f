package domain

import "time"

// Coordinate is a bare latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LocationSample is one reported position. Immutable once recorded.
type LocationSample struct {
	Lat       float64
	Lng       float64
	AccuracyM float64 // reported GPS accuracy in meters, 0 if unknown
	SpeedKmh  float64 // reported speed, 0 if unknown
	Heading   float64 // degrees clockwise from north, [0,360)
	Timestamp time.Time
	Sequence  int
}
