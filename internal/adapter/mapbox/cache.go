package mapbox

import (
	"context"
	"fmt"

	"github.com/couchcryptid/weather-explorer/internal/observability"
	"github.com/couchcryptid/weather-explorer/internal/weather"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedResolver wraps a PlaceResolver with an in-memory LRU cache keyed by
// coordinates rounded to six decimals.
type CachedResolver struct {
	inner   weather.PlaceResolver
	cache   *lru.Cache[string, weather.Place]
	metrics *observability.Metrics
}

// NewCachedResolver creates a cache decorator holding up to maxEntries places.
func NewCachedResolver(inner weather.PlaceResolver, maxEntries int, metrics *observability.Metrics) (*CachedResolver, error) {
	cache, err := lru.New[string, weather.Place](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create place cache: %w", err)
	}
	return &CachedResolver{inner: inner, cache: cache, metrics: metrics}, nil
}

// ReverseGeocode returns the cached place for the coordinates, asking the
// inner resolver on a miss.
func (c *CachedResolver) ReverseGeocode(ctx context.Context, lat, lon float64) (weather.Place, error) {
	key := fmt.Sprintf("%.6f,%.6f", lat, lon)
	if place, ok := c.cache.Get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return place, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	place, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return place, err
	}
	// Only cache non-empty results so transient "not found" responses can be retried.
	if place.FormattedAddress != "" {
		c.cache.Add(key, place)
	}
	return place, nil
}

// Len returns the number of cached places.
func (c *CachedResolver) Len() int { return c.cache.Len() }
