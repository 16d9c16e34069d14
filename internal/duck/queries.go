package duck

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/couchcryptid/weather-explorer/internal/table"
)

// ErrInvalidIdentifier is returned when a table name is not a plain SQL
// identifier.
var ErrInvalidIdentifier = errors.New("duck: invalid identifier")

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Describe lists the tables when name is empty, or the columns of name.
func (d *DB) Describe(ctx context.Context, name string) (table.Result, error) {
	if name == "" {
		return d.Query(ctx, "SHOW TABLES")
	}
	if !identifier.MatchString(name) {
		return table.Result{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return d.Query(ctx, "DESCRIBE "+name)
}

// Stations returns every station ordered by name.
func (d *DB) Stations(ctx context.Context) (table.Result, error) {
	return d.Query(ctx, `SELECT * FROM stations ORDER BY name`)
}

// Station returns the stations row for id; the result is empty when there is
// no such station.
func (d *DB) Station(ctx context.Context, id string) (table.Result, error) {
	return d.Query(ctx, `SELECT * FROM stations WHERE id = ?::TEXT`, id)
}

// MonthlyAverageForStation returns the mean TAVG per month as {date, value},
// ordered by month.
func (d *DB) MonthlyAverageForStation(ctx context.Context, station string) (table.Result, error) {
	return d.Query(ctx, `
		SELECT CAST(date_trunc('month', date) AS DATE) AS date, avg(value) AS value
		FROM weather
		WHERE element = 'TAVG' AND value != -9999 AND id = ?::TEXT
		GROUP BY 1
		ORDER BY 1
	`, station)
}

// WeatherForStationForRange returns the raw observations of station with a
// date in [start, end], ordered by date.
func (d *DB) WeatherForStationForRange(ctx context.Context, station string, start, end time.Time) (table.Result, error) {
	return d.Query(ctx, `
		SELECT *
		FROM weather
		WHERE id = ?::TEXT AND date >= ?::DATE AND date <= ?::DATE
		ORDER BY date, element
	`, station, start.Format(time.DateOnly), end.Format(time.DateOnly))
}

// AveragesForStation returns the mean TAVG and PRCP per calendar month as
// {month, element, value}, month being the English month name.
func (d *DB) AveragesForStation(ctx context.Context, station string) (table.Result, error) {
	return d.Query(ctx, `
		SELECT monthname(date) AS month, element, avg(value) AS value
		FROM weather
		WHERE id = ?::TEXT AND element IN ('TAVG', 'PRCP') AND value != -9999
		GROUP BY 1, 2
	`, station)
}

// detailMapping carries the rainfall aggregate into the temperature rows.
var detailMapping = []table.Mapping{
	{From: "total", To: "rainfall"},
	{From: "values", To: "rainValues"},
}

// WeatherDetailByMonth returns one row per month with the TAVG average and
// daily values, joined on date with that month's PRCP total and daily values
// as rainfall and rainValues. Months without TAVG are omitted.
func (d *DB) WeatherDetailByMonth(ctx context.Context, station string) (table.Result, error) {
	temperatures, err := d.Query(ctx, `
		SELECT CAST(date_trunc('month', date) AS DATE) AS date,
		       avg(value) AS average,
		       list(value ORDER BY date) AS "values"
		FROM weather
		WHERE id = ?::TEXT AND element = 'TAVG' AND value != -9999
		GROUP BY 1
		ORDER BY 1
	`, station)
	if err != nil {
		return table.Result{}, err
	}

	rainfall, err := d.Query(ctx, `
		SELECT CAST(date_trunc('month', date) AS DATE) AS date,
		       sum(value) AS total,
		       list(value ORDER BY date) AS "values"
		FROM weather
		WHERE id = ?::TEXT AND element = 'PRCP' AND value != -9999
		GROUP BY 1
		ORDER BY 1
	`, station)
	if err != nil {
		return table.Result{}, err
	}

	return table.Result{
		Columns: table.Union(temperatures.Columns, table.MappedColumns(detailMapping)),
		Rows:    table.Join(temperatures.Rows, rainfall.Rows, "date", detailMapping),
	}, nil
}
