//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/weather-explorer/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return &Client{
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestSmoke_ReverseGeocode_CentralPark(t *testing.T) {
	c := smokeClient(t)

	place, err := c.ReverseGeocode(context.Background(), 40.7789, -73.9692)
	require.NoError(t, err)

	assert.Contains(t, place.FormattedAddress, "New York")
	assert.NotEmpty(t, place.Name)
	assert.Greater(t, place.Confidence, 0.0)
}

func TestSmoke_CachedResolver(t *testing.T) {
	cached, err := NewCachedResolver(smokeClient(t), 10, observability.NewMetricsForTesting())
	require.NoError(t, err)

	// Sydney Observatory Hill.
	p1, err := cached.ReverseGeocode(context.Background(), -33.8607, 151.205)
	require.NoError(t, err)
	p2, err := cached.ReverseGeocode(context.Background(), -33.8607, 151.205)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}
