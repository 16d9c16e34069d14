package weather

import "context"

// PlaceResolver names the place nearest to a coordinate.
type PlaceResolver interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error)
}
