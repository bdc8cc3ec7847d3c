package geo

import "math"

// earthRadiusMeters is the mean Earth radius used for great-circle distance.
const earthRadiusMeters = 6371000.0

// Metrics aggregates a coordinate sequence into trip-level figures.
type Metrics struct {
	DistanceMeters  float64
	DurationMinutes float64
	AvgSpeedKmh     float64
}

// DistanceMeters returns the haversine great-circle distance between two
// coordinates in meters. It is deterministic and assumes in-range lat/lng;
// out-of-range values are rejected upstream via Coordinate.Validate.
func DistanceMeters(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Aggregate computes total distance, duration, and average speed for an
// ordered coordinate sequence. Distance is the sum of consecutive pairwise
// distances (the first point contributes zero). Duration comes from the
// first/last timestamps, not observation time. Sequences of length 0 or 1
// aggregate to all zeros, and zero duration yields zero speed.
func Aggregate(coords []Coordinate) Metrics {
	if len(coords) < 2 {
		return Metrics{}
	}

	var distance float64
	for i := 1; i < len(coords); i++ {
		distance += DistanceMeters(coords[i-1], coords[i])
	}

	durationMinutes := float64(coords[len(coords)-1].Timestamp-coords[0].Timestamp) / (1000 * 60)
	var avgSpeed float64
	if durationMinutes > 0 {
		avgSpeed = (distance / 1000) / (durationMinutes / 60)
	}

	return Metrics{
		DistanceMeters:  distance,
		DurationMinutes: durationMinutes,
		AvgSpeedKmh:     avgSpeed,
	}
}
