package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/couchcryptid/weather-explorer/internal/config"
	"github.com/couchcryptid/weather-explorer/internal/dashboard"
	"github.com/couchcryptid/weather-explorer/internal/duck"
	"github.com/couchcryptid/weather-explorer/internal/source"
	"github.com/couchcryptid/weather-explorer/internal/table"
	"github.com/spf13/cobra"
)

func addCommands(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "tables [table]",
		Short: "List the tables, or the columns of one table",
		Args:  cobra.MaximumNArgs(1),
		RunE:  describeTables}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "query sql [params...]",
		Short: "Run a SQL statement with optional positional parameters",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runQuery}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "stations",
		Short: "List stations ordered by name",
		Args:  cobra.NoArgs,
		RunE:  listStations}
	cmd.Flags().Bool("sampled", false, "only stations with sampled observations")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "series station",
		Short: "Daily TMIN/TAVG/TMAX/PRCP for a station",
		Args:  cobra.ExactArgs(1),
		RunE:  showSeries}
	cmd.Flags().String("start", "", "first day, YYYY-MM-DD (default: 365 days before end)")
	cmd.Flags().String("end", "", "last day, YYYY-MM-DD (default: today)")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "averages station",
		Short: "Average TAVG and PRCP per calendar month",
		Args:  cobra.ExactArgs(1),
		RunE:  showAverages}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "detail station",
		Short: "Monthly temperature and rainfall detail",
		Args:  cobra.ExactArgs(1),
		RunE:  showDetail}
	cmd.Flags().String("start", "", "first day, YYYY-MM-DD (default: open)")
	cmd.Flags().String("end", "", "last day, YYYY-MM-DD (default: open)")
	root.AddCommand(cmd)
}

// Action holds the state shared by one command invocation.
type Action struct {
	cmd *cobra.Command
	out io.Writer
	db  *duck.DB
}

func newAction(cmd *cobra.Command) (*Action, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if getBool(cmd, "verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var loader duck.Loader
	weatherPath, stationsPath := getString(cmd, "weather"), getString(cmd, "stations")
	if weatherPath != "" && stationsPath != "" {
		loader = duck.LoaderFunc(func(ctx context.Context, conn duck.Execer) error {
			return duck.LoadParquetFiles(ctx, conn, weatherPath, stationsPath)
		})
	} else {
		fetcher, err := source.NewFetcher(cmd.Context(), cfg.DataBaseURL, cfg.FetchTimeout)
		if err != nil {
			return nil, err
		}
		loader = duck.NewParquetLoader(fetcher, cfg.DataDir, cfg.WeatherFile, cfg.StationsFile, logger)
	}

	db := duck.New(cfg.DuckDBPath, loader, duck.WithLogger(logger))
	if err := db.Init(cmd.Context()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Action{cmd: cmd, out: cmd.OutOrStdout(), db: db}, nil
}

// run opens the database, calls fn, and prints its result.
func run(cmd *cobra.Command, fn func(ctx context.Context, a *Action) (any, error)) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	cmd.SetContext(ctx)

	a, err := newAction(cmd)
	if err != nil {
		return err
	}
	defer a.db.Close()

	v, err := fn(ctx, a)
	if err != nil {
		return err
	}
	if getBool(cmd, "json") {
		return showJSON(a.out, v)
	}
	if res, ok := v.(table.Result); ok {
		return showTable(a.out, res)
	}
	return showJSON(a.out, v)
}

func (a *Action) service() *dashboard.Service {
	return dashboard.New(a.db, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func describeTables(cmd *cobra.Command, args []string) error {
	return run(cmd, func(ctx context.Context, a *Action) (any, error) {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		return a.db.Describe(ctx, name)
	})
}

func runQuery(cmd *cobra.Command, args []string) error {
	return run(cmd, func(ctx context.Context, a *Action) (any, error) {
		params := make([]any, len(args)-1)
		for i, p := range args[1:] {
			params[i] = p
		}
		return a.db.Query(ctx, args[0], params...)
	})
}

func listStations(cmd *cobra.Command, _ []string) error {
	return run(cmd, func(ctx context.Context, a *Action) (any, error) {
		return a.service().Stations(ctx, getBool(cmd, "sampled"))
	})
}

func showSeries(cmd *cobra.Command, args []string) error {
	return run(cmd, func(ctx context.Context, a *Action) (any, error) {
		start, end, err := dateFlags(cmd)
		if err != nil {
			return nil, err
		}
		start, end = dashboard.DefaultRange(time.Now(), start, end)
		return a.service().TimeSeries(ctx, args[0], start, end)
	})
}

func showAverages(cmd *cobra.Command, args []string) error {
	return run(cmd, func(ctx context.Context, a *Action) (any, error) {
		return a.service().Averages(ctx, args[0])
	})
}

func showDetail(cmd *cobra.Command, args []string) error {
	return run(cmd, func(ctx context.Context, a *Action) (any, error) {
		start, end, err := dateFlags(cmd)
		if err != nil {
			return nil, err
		}
		return a.service().Detail(ctx, args[0], start, end)
	})
}

func getBool(cmd *cobra.Command, name string) bool {
	result, _ := cmd.Flags().GetBool(name)
	return result
}

func getString(cmd *cobra.Command, name string) string {
	result, _ := cmd.Flags().GetString(name)
	return result
}

// dateFlags reads --start and --end, rejecting an end before the start.
func dateFlags(cmd *cobra.Command) (start, end time.Time, err error) {
	if start, err = parseDate(getString(cmd, "start")); err != nil {
		return
	}
	if end, err = parseDate(getString(cmd, "end")); err != nil {
		return
	}
	err = dashboard.CheckRange(start, end)
	return
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", v)
	}
	return t, nil
}

func showJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// showTable prints res as aligned columns. Rows from a result without column
// names fall back to sorted keys.
func showTable(w io.Writer, res table.Result) error {
	cols := res.Columns
	if len(cols) == 0 && len(res.Rows) > 0 {
		for k := range res.Rows[0] {
			cols = append(cols, k)
		}
		sort.Strings(cols)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	for _, row := range res.Rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = formatCell(row[c])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	case float32, float64:
		return fmt.Sprintf("%.2f", x)
	default:
		return fmt.Sprint(x)
	}
}
