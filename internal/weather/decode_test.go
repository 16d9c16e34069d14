package weather

import (
	"testing"
	"time"

	"github.com/couchcryptid/weather-explorer/internal/table"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStations(t *testing.T) {
	res := table.Result{
		Columns: stationColumns,
		Rows: []table.Row{{
			"id": "USW00094728", "lat": 40.7789, "lon": -73.9692, "elevation": 39.6,
			"state": "NY", "name": "NEW YORK CNTRL PK TWR", "gsn": false, "hcn": true,
			"crn": false, "wmo": int32(72506), "sampled": true,
		}},
	}

	got, err := DecodeStations(res)
	require.NoError(t, err)

	want := []Station{{
		ID: "USW00094728", Lat: 40.7789, Lon: -73.9692, Elevation: 39.6,
		State: "NY", Name: "NEW YORK CNTRL PK TWR", HCN: true, WMO: 72506, Sampled: true,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("stations mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeStations_MissingColumns(t *testing.T) {
	_, err := DecodeStations(table.Result{Columns: []string{"id", "name"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lat")
	assert.Contains(t, err.Error(), "sampled")
}

func TestDecodeObservations(t *testing.T) {
	date := time.Date(2021, 7, 4, 0, 0, 0, 0, time.UTC)
	res := table.Result{
		Columns: []string{"id", "year", "month", "day", "date", "element", "value"},
		Rows: []table.Row{{
			"id": "X", "year": int32(2021), "month": int32(7), "day": int32(4),
			"date": date, "element": "TMAX", "value": int32(311),
		}},
	}
	got, err := DecodeObservations(res)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Observation{ID: "X", Year: 2021, Month: 7, Day: 4, Date: date, Element: "TMAX", Value: 311}, got[0])
}

func TestDecodeMonthlyAverages(t *testing.T) {
	month := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)
	res := table.Result{
		Columns: []string{"date", "value"},
		Rows:    []table.Row{{"date": month, "value": 245.25}},
	}
	got, err := DecodeMonthlyAverages(res)
	require.NoError(t, err)
	assert.Equal(t, []MonthlyAverage{{Date: month, Value: 245.25}}, got)

	_, err = DecodeMonthlyAverages(table.Result{Columns: []string{"date"}})
	assert.Error(t, err)
}

func TestDailyFromRows_NullsStayNil(t *testing.T) {
	date := time.Date(2021, 7, 4, 0, 0, 0, 0, time.UTC)
	got := DailyFromRows([]table.Row{{"date": date, "TMIN": int32(200), "TMAX": nil, "TAVG": 250.0}})

	require.Len(t, got, 1)
	require.NotNil(t, got[0].TMIN)
	assert.InDelta(t, 200.0, *got[0].TMIN, 1e-9)
	assert.Nil(t, got[0].TMAX)
	assert.Nil(t, got[0].PRCP)
	require.NotNil(t, got[0].TAVG)
	assert.InDelta(t, 250.0, *got[0].TAVG, 1e-9)
}

func TestNormalsFromRows(t *testing.T) {
	got := NormalsFromRows([]table.Row{{"month": "May", "TAVG": 160.5}})
	require.Len(t, got, 1)
	assert.Equal(t, "May", got[0].Month)
	require.NotNil(t, got[0].TAVG)
	assert.Nil(t, got[0].PRCP)
}

func TestDetailFromRows(t *testing.T) {
	month := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)
	got := DetailFromRows([]table.Row{
		{"date": month, "average": 240.0, "values": []any{int32(230), int32(250)}, "rainfall": int64(12), "rainValues": []any{int32(0), int32(12)}},
		{"date": month.AddDate(0, 1, 0), "average": 220.0, "values": []any{int32(220)}},
	})

	require.Len(t, got, 2)
	assert.Equal(t, []float64{230, 250}, got[0].Values)
	require.NotNil(t, got[0].Rainfall)
	assert.InDelta(t, 12.0, *got[0].Rainfall, 1e-9)
	assert.Equal(t, []float64{0, 12}, got[0].RainValues)
	assert.Nil(t, got[1].Rainfall)
	assert.Nil(t, got[1].RainValues)
}

func TestMonthStart(t *testing.T) {
	got := MonthStart(time.Date(2021, 7, 19, 13, 4, 0, 0, time.FixedZone("x", 3600)))
	assert.Equal(t, time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC), got)
}
