// Package geo provides pure great-circle distance and trip aggregation math
// over GPS samples. It has no side effects and no external dependencies.
package geo

import "errors"

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// Coordinate is a single GPS sample. Timestamp is Unix milliseconds, as
// captured by the client. Sequences are expected to be chronological but are
// treated as untrusted input by everything downstream.
type Coordinate struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Timestamp int64   `json:"timestamp"`
}

// Validate checks that the coordinate lies within valid lat/lng ranges.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return ErrInvalidLatitude
	}
	if c.Lng < -180 || c.Lng > 180 {
		return ErrInvalidLongitude
	}
	return nil
}
