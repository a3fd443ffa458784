package geo

import "math"

// earthRadiusKm is the mean radius of the spherical-earth approximation.
const earthRadiusKm = 6371.0

// DistanceKm computes the great-circle distance in kilometers between two
// coordinates using the haversine formula. Pure and symmetric.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// ProximityScore is the distance term of the relevance score: closer
// suppliers earn up to 10 points, anything beyond 10 km earns none.
func ProximityScore(distanceKm float64) float64 {
	return math.Max(0, 10-distanceKm)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
