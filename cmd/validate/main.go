// Command validate checks weather and stations Parquet files before they are
// published: required columns, row counts, referential integrity between the
// two files, and that every canned dashboard query runs against them.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -weather data/mock/noaa-sample.parquet \
//	  -stations data/mock/noaa-gsn-stations.parquet
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/weather-explorer/internal/dashboard"
	"github.com/couchcryptid/weather-explorer/internal/duck"
	"github.com/couchcryptid/weather-explorer/internal/parquetfile"
	"github.com/couchcryptid/weather-explorer/internal/table"
	"github.com/couchcryptid/weather-explorer/internal/weather"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	weatherPath := flag.String("weather", "", "path to the weather Parquet file")
	stationsPath := flag.String("stations", "", "path to the stations Parquet file")
	flag.Parse()

	if *weatherPath == "" || *stationsPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if code := run(ctx, os.Stdout, *weatherPath, *stationsPath); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, out io.Writer, weatherPath, stationsPath string) int {
	fmt.Fprintln(out, "=== Weather Data Validation ===")
	fmt.Fprintln(out)

	phases := validate(ctx, weatherPath, stationsPath)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// validate runs every phase. Later phases are skipped when the files cannot
// be loaded.
func validate(ctx context.Context, weatherPath, stationsPath string) []*phase {
	files := validateFiles(weatherPath, stationsPath)
	if !files.passed() {
		return []*phase{files}
	}

	db := duck.New("", duck.LoaderFunc(func(ctx context.Context, conn duck.Execer) error {
		return duck.LoadParquetFiles(ctx, conn, weatherPath, stationsPath)
	}), duck.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	defer db.Close()

	load := &phase{name: "Load into database"}
	if err := db.Init(ctx); err != nil {
		load.errorf("%v", err)
		return []*phase{files, load}
	}

	return []*phase{
		files,
		load,
		validateIntegrity(ctx, db),
		validateQueries(ctx, db),
	}
}

// validateFiles checks the Parquet footers: required columns and non-empty files.
func validateFiles(weatherPath, stationsPath string) *phase {
	p := &phase{name: "Parquet schema and row counts"}
	for _, f := range []struct {
		path string
		cols []string
	}{
		{weatherPath, parquetfile.WeatherColumns},
		{stationsPath, parquetfile.StationColumns},
	} {
		info, err := parquetfile.Inspect(f.path)
		if err != nil {
			p.errorf("%v", err)
			continue
		}
		if err := parquetfile.RequireColumns(f.path, f.cols...); err != nil {
			p.errorf("%v", err)
		}
		if info.Rows == 0 {
			p.errorf("%s: no rows", f.path)
		}
	}
	return p
}

// integrityCheck is a query whose single count column must be zero.
type integrityCheck struct {
	desc string
	sql  string
}

var integrityChecks = []integrityCheck{
	{
		desc: "observations for unknown stations",
		sql:  `SELECT count(*) AS n FROM weather w WHERE NOT EXISTS (SELECT 1 FROM stations s WHERE s.id = w.id)`,
	},
	{
		desc: "observations with unknown elements",
		sql:  `SELECT count(*) AS n FROM weather WHERE element NOT IN ('TMIN', 'TAVG', 'TMAX', 'PRCP')`,
	},
	{
		desc: "observations whose year/month/day disagree with date",
		sql: `SELECT count(*) AS n FROM weather
		      WHERE year != year(date) OR month != month(date) OR day != day(date)`,
	},
	{
		desc: "duplicate observations",
		sql: `SELECT count(*) AS n FROM (
		        SELECT id, date, element FROM weather GROUP BY ALL HAVING count(*) > 1
		      )`,
	},
	{
		desc: "sampled stations without observations",
		sql:  `SELECT count(*) AS n FROM stations s WHERE sampled AND NOT EXISTS (SELECT 1 FROM weather w WHERE w.id = s.id)`,
	},
	{
		desc: "negative precipitation",
		sql:  `SELECT count(*) AS n FROM weather WHERE element = 'PRCP' AND value < 0 AND value != -9999`,
	},
}

func validateIntegrity(ctx context.Context, db *duck.DB) *phase {
	p := &phase{name: "Referential and value integrity"}
	for _, c := range integrityChecks {
		n, err := count(ctx, db, c.sql)
		if err != nil {
			p.errorf("%s: %v", c.desc, err)
			continue
		}
		if n > 0 {
			p.errorf("%d %s", n, c.desc)
		}
	}
	return p
}

// validateQueries runs every chart query for each sampled station.
func validateQueries(ctx context.Context, db *duck.DB) *phase {
	p := &phase{name: "Dashboard queries"}
	svc := dashboard.New(db, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	stations, err := svc.Stations(ctx, true)
	if err != nil {
		p.errorf("stations: %v", err)
		return p
	}
	if len(stations) == 0 {
		p.errorf("no sampled stations")
		return p
	}

	for _, st := range stations {
		if err := checkStation(ctx, svc, st); err != nil {
			p.errorf("%s (%s): %v", st.ID, strings.TrimSpace(st.Name), err)
		}
	}
	return p
}

func checkStation(ctx context.Context, svc *dashboard.Service, st weather.Station) error {
	if _, err := svc.Station(ctx, st.ID); err != nil {
		return fmt.Errorf("station: %w", err)
	}
	monthly, err := svc.MonthlyAverages(ctx, st.ID)
	if err != nil {
		return fmt.Errorf("monthly averages: %w", err)
	}
	if len(monthly) == 0 {
		return fmt.Errorf("monthly averages: no TAVG data")
	}
	first, last := monthly[0].Date, monthly[len(monthly)-1].Date
	if _, err := svc.TimeSeries(ctx, st.ID, first, last.AddDate(0, 1, -1)); err != nil {
		return fmt.Errorf("time series: %w", err)
	}
	normals, err := svc.Averages(ctx, st.ID)
	if err != nil {
		return fmt.Errorf("averages: %w", err)
	}
	for i := 1; i < len(normals); i++ {
		if table.MonthIndex(normals[i-1].Month) >= table.MonthIndex(normals[i].Month) {
			return fmt.Errorf("averages: months out of order at %s", normals[i].Month)
		}
	}
	if _, err := svc.Detail(ctx, st.ID, time.Time{}, time.Time{}); err != nil {
		return fmt.Errorf("detail: %w", err)
	}
	return nil
}

func count(ctx context.Context, db *duck.DB, sqlText string) (int64, error) {
	res, err := db.Query(ctx, sqlText)
	if err != nil {
		return 0, err
	}
	if len(res.Rows) != 1 {
		return 0, fmt.Errorf("expected one row, got %d", len(res.Rows))
	}
	n, ok := res.Rows[0].Int("n")
	if !ok {
		return 0, fmt.Errorf("count is %T", res.Rows[0]["n"])
	}
	return n, nil
}
