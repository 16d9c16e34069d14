package weather

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/weather-explorer/internal/table"
)

// RequireColumns reports every column that res does not project.
func RequireColumns(res table.Result, cols ...string) error {
	have := make(map[string]struct{}, len(res.Columns))
	for _, c := range res.Columns {
		have[c] = struct{}{}
	}
	var missing []string
	for _, c := range cols {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("result is missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

var stationColumns = []string{"id", "lat", "lon", "elevation", "state", "name", "gsn", "hcn", "crn", "wmo", "sampled"}

// DecodeStations converts a stations result into records.
func DecodeStations(res table.Result) ([]Station, error) {
	if err := RequireColumns(res, stationColumns...); err != nil {
		return nil, fmt.Errorf("decode stations: %w", err)
	}
	out := make([]Station, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, StationFromRow(row))
	}
	return out, nil
}

// StationFromRow converts one stations row. Null columns become zero values.
func StationFromRow(row table.Row) Station {
	var s Station
	s.ID, _ = row.String("id")
	s.Lat, _ = row.Float("lat")
	s.Lon, _ = row.Float("lon")
	s.Elevation, _ = row.Float("elevation")
	s.State, _ = row.String("state")
	s.Name, _ = row.String("name")
	s.GSN, _ = row.Bool("gsn")
	s.HCN, _ = row.Bool("hcn")
	s.CRN, _ = row.Bool("crn")
	s.WMO, _ = row.Int("wmo")
	s.Sampled, _ = row.Bool("sampled")
	return s
}

// DecodeObservations converts raw weather rows into records.
func DecodeObservations(res table.Result) ([]Observation, error) {
	if err := RequireColumns(res, "id", "date", "element", "value"); err != nil {
		return nil, fmt.Errorf("decode observations: %w", err)
	}
	out := make([]Observation, 0, len(res.Rows))
	for _, row := range res.Rows {
		var o Observation
		o.ID, _ = row.String("id")
		o.Date, _ = row.Time("date")
		o.Element, _ = row.String("element")
		v, _ := row.Int("value")
		o.Value = int(v)
		y, _ := row.Int("year")
		m, _ := row.Int("month")
		d, _ := row.Int("day")
		o.Year, o.Month, o.Day = int(y), int(m), int(d)
		out = append(out, o)
	}
	return out, nil
}

// DecodeMonthlyAverages converts a {date, value} result.
func DecodeMonthlyAverages(res table.Result) ([]MonthlyAverage, error) {
	if err := RequireColumns(res, "date", "value"); err != nil {
		return nil, fmt.Errorf("decode monthly averages: %w", err)
	}
	out := make([]MonthlyAverage, 0, len(res.Rows))
	for _, row := range res.Rows {
		var m MonthlyAverage
		m.Date, _ = row.Time("date")
		m.Value, _ = row.Float("value")
		out = append(out, m)
	}
	return out, nil
}

// DailyFromRows converts rows pivoted by element on date.
func DailyFromRows(rows []table.Row) []DailyWeather {
	out := make([]DailyWeather, 0, len(rows))
	for _, row := range rows {
		var d DailyWeather
		d.Date, _ = row.Time("date")
		d.TMIN = optionalFloat(row, ElementTMIN)
		d.TAVG = optionalFloat(row, ElementTAVG)
		d.TMAX = optionalFloat(row, ElementTMAX)
		d.PRCP = optionalFloat(row, ElementPRCP)
		out = append(out, d)
	}
	return out
}

// NormalsFromRows converts rows pivoted by element on month name.
func NormalsFromRows(rows []table.Row) []MonthlyNormal {
	out := make([]MonthlyNormal, 0, len(rows))
	for _, row := range rows {
		var n MonthlyNormal
		n.Month, _ = row.String("month")
		n.TAVG = optionalFloat(row, ElementTAVG)
		n.PRCP = optionalFloat(row, ElementPRCP)
		out = append(out, n)
	}
	return out
}

// DetailFromRows converts the joined monthly temperature/rainfall rows.
func DetailFromRows(rows []table.Row) []MonthlyDetail {
	out := make([]MonthlyDetail, 0, len(rows))
	for _, row := range rows {
		var d MonthlyDetail
		d.Date, _ = row.Time("date")
		d.Average, _ = row.Float("average")
		d.Values, _ = row.Floats("values")
		d.Rainfall = optionalFloat(row, "rainfall")
		d.RainValues, _ = row.Floats("rainValues")
		out = append(out, d)
	}
	return out
}

// MonthStart truncates t to the first day of its month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func optionalFloat(row table.Row, col string) *float64 {
	f, ok := row.Float(col)
	if !ok {
		return nil
	}
	return &f
}
