package weather

import (
	"time"
)

// GHCN element codes used by the dashboard.
const (
	ElementTMAX = "TMAX"
	ElementTMIN = "TMIN"
	ElementTAVG = "TAVG"
	ElementPRCP = "PRCP"
)

// MissingValue is the GHCN sentinel for an unreported observation.
const MissingValue = -9999

// Station is one row of the stations table.
type Station struct {
	ID        string  `json:"id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Elevation float64 `json:"elevation"`
	State     string  `json:"state,omitempty"`
	Name      string  `json:"name"`
	GSN       bool    `json:"gsn"`
	HCN       bool    `json:"hcn"`
	CRN       bool    `json:"crn"`
	WMO       int64   `json:"wmo"`
	Sampled   bool    `json:"sampled"`
}

// Observation is one raw row of the weather table.
type Observation struct {
	ID      string    `json:"id"`
	Year    int       `json:"year"`
	Month   int       `json:"month"`
	Day     int       `json:"day"`
	Date    time.Time `json:"date"`
	Element string    `json:"element"`
	Value   int       `json:"value"`
}

// MonthlyAverage is one point of the monthly TAVG series.
type MonthlyAverage struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// DailyWeather is one day of observations pivoted by element. Nil fields were
// missing or not reported.
type DailyWeather struct {
	Date time.Time `json:"date"`
	TMIN *float64  `json:"TMIN"`
	TAVG *float64  `json:"TAVG"`
	TMAX *float64  `json:"TMAX"`
	PRCP *float64  `json:"PRCP"`
}

// MonthlyNormal is the average temperature and precipitation for one calendar
// month across all years in the sample.
type MonthlyNormal struct {
	Month string   `json:"month"`
	TAVG  *float64 `json:"TAVG"`
	PRCP  *float64 `json:"PRCP"`
}

// MonthlyDetail is one month of temperature joined with the same month's
// rainfall, carrying the daily values behind each aggregate for sparklines.
type MonthlyDetail struct {
	Date       time.Time `json:"date"`
	Average    float64   `json:"average"`
	Values     []float64 `json:"values"`
	Rainfall   *float64  `json:"rainfall"`
	RainValues []float64 `json:"rainValues"`
}

// Place is a human-readable location resolved from coordinates.
type Place struct {
	Name             string  `json:"name,omitempty"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"` // 0.0–1.0 provider confidence score
}

// StationDetail is a station with its optional resolved place.
type StationDetail struct {
	Station
	Place *Place `json:"place,omitempty"`
}
