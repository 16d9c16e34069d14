package duck

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/weather-explorer/internal/parquetfile"
	"github.com/couchcryptid/weather-explorer/internal/source"
)

// ParquetLoader downloads the weather and stations files and loads them as
// the weather and stations tables.
type ParquetLoader struct {
	fetcher      source.Fetcher
	dir          string
	weatherFile  string
	stationsFile string
	logger       *slog.Logger
}

// NewParquetLoader creates a loader that caches files from fetcher in dir.
func NewParquetLoader(fetcher source.Fetcher, dir, weatherFile, stationsFile string, logger *slog.Logger) *ParquetLoader {
	return &ParquetLoader{
		fetcher:      fetcher,
		dir:          dir,
		weatherFile:  weatherFile,
		stationsFile: stationsFile,
		logger:       logger,
	}
}

// Load fetches both files and creates the tables from them.
func (l *ParquetLoader) Load(ctx context.Context, conn Execer) error {
	paths, err := source.Download(ctx, l.fetcher, l.dir, l.weatherFile, l.stationsFile)
	if err != nil {
		return err
	}
	l.logger.Info("data files ready",
		"weather", paths[l.weatherFile],
		"stations", paths[l.stationsFile],
	)
	return LoadParquetFiles(ctx, conn, paths[l.weatherFile], paths[l.stationsFile])
}

// LoadParquetFiles checks both local files for their required columns, then
// creates the weather and stations tables from them. The weather calendar and
// value columns are narrowed to INTEGER and date to DATE.
func LoadParquetFiles(ctx context.Context, conn Execer, weatherPath, stationsPath string) error {
	if err := parquetfile.RequireColumns(weatherPath, parquetfile.WeatherColumns...); err != nil {
		return fmt.Errorf("weather file: %w", err)
	}
	if err := parquetfile.RequireColumns(stationsPath, parquetfile.StationColumns...); err != nil {
		return fmt.Errorf("stations file: %w", err)
	}

	stmts := []string{
		"CREATE TABLE weather AS SELECT * FROM read_parquet(" + quote(weatherPath) + ")",
		"CREATE TABLE stations AS SELECT * FROM read_parquet(" + quote(stationsPath) + ")",
		"ALTER TABLE weather ALTER value TYPE INTEGER",
		"ALTER TABLE weather ALTER year TYPE INTEGER",
		"ALTER TABLE weather ALTER month TYPE INTEGER",
		"ALTER TABLE weather ALTER day TYPE INTEGER",
		"ALTER TABLE weather ALTER date TYPE DATE",
	}
	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// quote renders s as a SQL string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
