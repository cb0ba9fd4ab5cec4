package pricing

import "fmt"

// ValidationError reports a malformed offer or filter input. It is returned
// to the caller and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// GeoError reports coordinates that cannot be used for distance computation.
// Offers carrying such coordinates are excluded from radius filtering rather
// than failing the whole query.
type GeoError struct {
	Lat, Lon float64
}

func (e GeoError) Error() string {
	return fmt.Sprintf("invalid coordinates: lat=%v lon=%v", e.Lat, e.Lon)
}
