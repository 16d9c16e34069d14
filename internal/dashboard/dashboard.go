// Package dashboard shapes query results into the series each chart needs.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-explorer/internal/table"
	"github.com/couchcryptid/weather-explorer/internal/weather"
)

// ErrStationNotFound is returned when a station id is not in the stations table.
var ErrStationNotFound = errors.New("station not found")

// Store runs the canned weather queries. *duck.DB implements it.
type Store interface {
	Describe(ctx context.Context, name string) (table.Result, error)
	Stations(ctx context.Context) (table.Result, error)
	Station(ctx context.Context, id string) (table.Result, error)
	MonthlyAverageForStation(ctx context.Context, station string) (table.Result, error)
	WeatherForStationForRange(ctx context.Context, station string, start, end time.Time) (table.Result, error)
	AveragesForStation(ctx context.Context, station string) (table.Result, error)
	WeatherDetailByMonth(ctx context.Context, station string) (table.Result, error)
}

// Service answers chart requests for one station at a time.
type Service struct {
	store  Store
	places weather.PlaceResolver
	logger *slog.Logger
}

// New creates a Service. places may be nil to skip place names.
func New(store Store, places weather.PlaceResolver, logger *slog.Logger) *Service {
	return &Service{store: store, places: places, logger: logger}
}

// Describe lists the tables, or the columns of one table.
func (s *Service) Describe(ctx context.Context, name string) (table.Result, error) {
	return s.store.Describe(ctx, name)
}

// Stations returns all stations ordered by name, or only those with sampled
// observations.
func (s *Service) Stations(ctx context.Context, sampledOnly bool) ([]weather.Station, error) {
	res, err := s.store.Stations(ctx)
	if err != nil {
		return nil, err
	}
	stations, err := weather.DecodeStations(res)
	if err != nil {
		return nil, err
	}
	if !sampledOnly {
		return stations, nil
	}
	sampled := stations[:0]
	for _, st := range stations {
		if st.Sampled {
			sampled = append(sampled, st)
		}
	}
	return sampled, nil
}

// Station returns one station, with the nearest place name when a resolver
// is configured. A failed lookup is logged and leaves Place nil.
func (s *Service) Station(ctx context.Context, id string) (weather.StationDetail, error) {
	res, err := s.store.Station(ctx, id)
	if err != nil {
		return weather.StationDetail{}, err
	}
	stations, err := weather.DecodeStations(res)
	if err != nil {
		return weather.StationDetail{}, err
	}
	if len(stations) == 0 {
		return weather.StationDetail{}, fmt.Errorf("%w: %s", ErrStationNotFound, id)
	}

	detail := weather.StationDetail{Station: stations[0]}
	if s.places == nil {
		return detail, nil
	}
	place, err := s.places.ReverseGeocode(ctx, detail.Lat, detail.Lon)
	if err != nil {
		s.logger.Warn("place lookup failed", "station", id, "error", err)
		return detail, nil
	}
	if place.FormattedAddress != "" || place.Name != "" {
		detail.Place = &place
	}
	return detail, nil
}

// MonthlyAverages returns the monthly TAVG series used to pick a date range.
func (s *Service) MonthlyAverages(ctx context.Context, station string) ([]weather.MonthlyAverage, error) {
	res, err := s.store.MonthlyAverageForStation(ctx, station)
	if err != nil {
		return nil, err
	}
	return weather.DecodeMonthlyAverages(res)
}

// TimeSeries returns one record per day in [start, end] with each element as
// a field. Missing-value sentinels become nil.
func (s *Service) TimeSeries(ctx context.Context, station string, start, end time.Time) ([]weather.DailyWeather, error) {
	if err := CheckRange(start, end); err != nil {
		return nil, err
	}
	res, err := s.store.WeatherForStationForRange(ctx, station, start, end)
	if err != nil {
		return nil, err
	}
	if err := weather.RequireColumns(res, "date", "element", "value"); err != nil {
		return nil, fmt.Errorf("time series: %w", err)
	}
	rows := table.Nullify(res.Rows, "value", weather.MissingValue)
	pivoted := table.Pivot(table.GroupBy(rows, "date"), "element", "value", "date")
	return weather.DailyFromRows(pivoted), nil
}

// Averages returns the TAVG and PRCP normals per calendar month, January first.
func (s *Service) Averages(ctx context.Context, station string) ([]weather.MonthlyNormal, error) {
	res, err := s.store.AveragesForStation(ctx, station)
	if err != nil {
		return nil, err
	}
	if err := weather.RequireColumns(res, "month", "element", "value"); err != nil {
		return nil, fmt.Errorf("averages: %w", err)
	}
	pivoted := table.Pivot(table.GroupBy(res.Rows, "month"), "element", "value", "month")
	table.SortByMonth(pivoted, "month")
	return weather.NormalsFromRows(pivoted), nil
}

// Detail returns the joined monthly temperature and rainfall rows whose month
// overlaps [start, end]. A zero start or end leaves that side open.
func (s *Service) Detail(ctx context.Context, station string, start, end time.Time) ([]weather.MonthlyDetail, error) {
	if err := CheckRange(start, end); err != nil {
		return nil, err
	}
	res, err := s.store.WeatherDetailByMonth(ctx, station)
	if err != nil {
		return nil, err
	}
	if err := weather.RequireColumns(res, "date", "average", "values"); err != nil {
		return nil, fmt.Errorf("detail: %w", err)
	}
	return weather.DetailFromRows(window(res.Rows, start, end)), nil
}

var byDate = table.ByTime(func(r table.Row) time.Time {
	t, _ := r.Time("date")
	return t
})

// window narrows month-keyed rows, sorted by date, to the months that overlap
// [start, end].
func window(rows []table.Row, start, end time.Time) []table.Row {
	switch {
	case start.IsZero() && end.IsZero():
		return rows
	case start.IsZero():
		return table.BisectLeft(rows, end.AddDate(0, 0, 1), byDate)
	case end.IsZero():
		return table.BisectRight(rows, weather.MonthStart(start), byDate)
	default:
		return table.Window(rows, weather.MonthStart(start), end, byDate)
	}
}
