package search

import (
	"math"

	"github.com/medcena/offer-service/internal/pricing"
)

// HaversineKm calculates the great-circle distance between two points in kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371.0 // Earth radius km
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func validCoord(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// OfferDistanceKm computes the distance from a query point to an offer's
// pharmacy. Returns false when the offer carries no coordinates, and a
// GeoError when the coordinates are out of range.
func OfferDistanceKm(qLat, qLon float64, o pricing.Offer) (float64, bool, error) {
	if o.PharmacyLat == nil || o.PharmacyLon == nil {
		return 0, false, nil
	}
	lat, lon := *o.PharmacyLat, *o.PharmacyLon
	if !validCoord(lat, lon) {
		return 0, false, pricing.GeoError{Lat: lat, Lon: lon}
	}
	return HaversineKm(qLat, qLon, lat, lon), true, nil
}
