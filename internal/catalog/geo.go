package catalog

import "math"

const earthRadiusKm = 6371.0088

// DistanceKm returns the great-circle distance between two points.
func DistanceKm(from, to GeoPoint) float64 {
	lat1 := toRadians(from.Latitude())
	lat2 := toRadians(to.Latitude())
	deltaLat := lat2 - lat1
	deltaLon := toRadians(to.Longitude() - from.Longitude())

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
