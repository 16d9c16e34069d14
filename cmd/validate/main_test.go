package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/weather-explorer/internal/parquetfile"
	"github.com/couchcryptid/weather-explorer/internal/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2023, m, d, 0, 0, 0, 0, time.UTC)
}

func obs(id string, date time.Time, element string, value int) weather.Observation {
	return weather.Observation{
		ID: id, Year: date.Year(), Month: int(date.Month()), Day: date.Day(),
		Date: date, Element: element, Value: value,
	}
}

func writeFixtures(t *testing.T, observations []weather.Observation, stations []weather.Station) (string, string) {
	t.Helper()
	dir := t.TempDir()
	weatherPath := filepath.Join(dir, "weather.parquet")
	stationsPath := filepath.Join(dir, "stations.parquet")
	require.NoError(t, parquetfile.WriteFile(weatherPath, func(w io.Writer) error {
		return parquetfile.WriteObservations(w, observations)
	}))
	require.NoError(t, parquetfile.WriteFile(stationsPath, func(w io.Writer) error {
		return parquetfile.WriteStations(w, stations)
	}))
	return weatherPath, stationsPath
}

var centralPark = weather.Station{ID: "S1", Lat: 40.7789, Lon: -73.9692, State: "NY", Name: "CENTRAL PARK", Sampled: true}

func TestValidate_Passes(t *testing.T) {
	weatherPath, stationsPath := writeFixtures(t, []weather.Observation{
		obs("S1", day(1, 1), "TAVG", 10),
		obs("S1", day(1, 1), "PRCP", 3),
		obs("S1", day(2, 1), "TAVG", 40),
		obs("S1", day(2, 1), "PRCP", weather.MissingValue),
	}, []weather.Station{centralPark})

	var out bytes.Buffer
	code := run(context.Background(), &out, weatherPath, stationsPath)
	assert.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "All validations passed.")
}

func TestValidate_IntegrityFailures(t *testing.T) {
	weatherPath, stationsPath := writeFixtures(t, []weather.Observation{
		obs("S1", day(1, 1), "TAVG", 10),
		obs("S1", day(1, 1), "TAVG", 11),
		obs("S9", day(1, 1), "TAVG", 10),
		obs("S1", day(1, 2), "PRCP", -5),
	}, []weather.Station{centralPark})

	phases := validate(context.Background(), weatherPath, stationsPath)
	require.Len(t, phases, 4)

	integrity := phases[2]
	assert.False(t, integrity.passed())
	assert.Contains(t, integrity.errors, "1 observations for unknown stations")
	assert.Contains(t, integrity.errors, "1 duplicate observations")
	assert.Contains(t, integrity.errors, "1 negative precipitation")
}

func TestValidate_MissingColumnsStopsEarly(t *testing.T) {
	_, stationsPath := writeFixtures(t, []weather.Observation{obs("S1", day(1, 1), "TAVG", 10)},
		[]weather.Station{centralPark})

	// A stations file where the weather file belongs.
	phases := validate(context.Background(), stationsPath, stationsPath)
	require.Len(t, phases, 1)
	assert.False(t, phases[0].passed())
	assert.Contains(t, phases[0].errors[0], "missing columns")
}

func TestValidate_NoSampledStations(t *testing.T) {
	st := centralPark
	st.Sampled = false
	weatherPath, stationsPath := writeFixtures(t, []weather.Observation{obs("S1", day(1, 1), "TAVG", 10)},
		[]weather.Station{st})

	var out bytes.Buffer
	assert.Equal(t, 1, run(context.Background(), &out, weatherPath, stationsPath))
	assert.Contains(t, out.String(), "no sampled stations")
}
