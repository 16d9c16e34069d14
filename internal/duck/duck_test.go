package duck

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/weather-explorer/internal/observability"
	"github.com/couchcryptid/weather-explorer/internal/table"
	"github.com/couchcryptid/weather-explorer/internal/weather"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixtureStatements = []string{
	`CREATE TABLE stations (id VARCHAR, lat DOUBLE, lon DOUBLE, elevation DOUBLE, state VARCHAR, name VARCHAR,
		gsn BOOLEAN, hcn BOOLEAN, crn BOOLEAN, wmo BIGINT, sampled BOOLEAN)`,
	`INSERT INTO stations VALUES
		('S1', 40.7789, -73.9692, 39.6, 'NY', 'CENTRAL PARK', false, true, false, 72506, true),
		('S2', -33.8607, 151.205, 39.0, NULL, 'OBSERVATORY HILL', true, false, false, NULL, false)`,
	`CREATE TABLE weather (id VARCHAR, year INTEGER, month INTEGER, day INTEGER, date DATE, element VARCHAR, value INTEGER)`,
	`INSERT INTO weather VALUES
		('S1', 2023, 1, 1, DATE '2023-01-01', 'TAVG', 10),
		('S1', 2023, 1, 2, DATE '2023-01-02', 'TAVG', 20),
		('S1', 2023, 1, 1, DATE '2023-01-01', 'PRCP', 5),
		('S1', 2023, 1, 2, DATE '2023-01-02', 'PRCP', 7),
		('S1', 2023, 2, 1, DATE '2023-02-01', 'TAVG', 30),
		('S1', 2023, 2, 1, DATE '2023-02-01', 'PRCP', -9999),
		('S1', 2023, 2, 2, DATE '2023-02-02', 'TAVG', -9999),
		('S2', 2023, 1, 1, DATE '2023-01-01', 'TAVG', 250)`,
}

var fixtureLoader = LoaderFunc(func(ctx context.Context, conn Execer) error {
	for _, stmt := range fixtureStatements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
})

func newTestDB(t *testing.T, opts ...Option) *DB {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	db := New("", fixtureLoader, opts...)
	require.NoError(t, db.Init(context.Background()))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func jan(day int) time.Time { return time.Date(2023, time.January, day, 0, 0, 0, 0, time.UTC) }
func feb(day int) time.Time { return time.Date(2023, time.February, day, 0, 0, 0, 0, time.UTC) }

// --- lifecycle ---

func TestQuery_BeforeInit(t *testing.T) {
	db := New("", fixtureLoader, WithLogger(discardLogger()))

	_, err := db.Query(context.Background(), "SELECT 1")
	require.ErrorIs(t, err, ErrNotInitialized)
	assert.Equal(t, Unstarted, db.State())
	assert.Error(t, db.CheckReadiness(context.Background()))
}

func TestInit_ConcurrentCallsLoadOnce(t *testing.T) {
	var loads atomic.Int64
	release := make(chan struct{})
	loader := LoaderFunc(func(ctx context.Context, conn Execer) error {
		loads.Add(1)
		<-release
		return fixtureLoader(ctx, conn)
	})
	db := New("", loader, WithLogger(discardLogger()))
	t.Cleanup(func() { _ = db.Close() })

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = db.Init(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return db.State() == Initializing }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(1), loads.Load())
	assert.Equal(t, Ready, db.State())
	assert.NoError(t, db.Init(context.Background()))
	assert.Equal(t, int64(1), loads.Load())
}

func TestInit_FailureIsMemoized(t *testing.T) {
	boom := errors.New("boom")
	var loads atomic.Int64
	release := make(chan struct{})
	db := New("", LoaderFunc(func(context.Context, Execer) error {
		loads.Add(1)
		<-release
		return boom
	}), WithLogger(discardLogger()))

	errCh := make(chan error, 2)
	for range 2 {
		go func() { errCh <- db.Init(context.Background()) }()
	}
	require.Eventually(t, func() bool { return db.State() == Initializing }, time.Second, time.Millisecond)
	close(release)

	require.ErrorIs(t, <-errCh, boom)
	require.ErrorIs(t, <-errCh, boom)
	require.ErrorIs(t, db.Init(context.Background()), boom)
	assert.Equal(t, int64(1), loads.Load())
	assert.Equal(t, Failed, db.State())

	_, err := db.Query(context.Background(), "SELECT 1")
	require.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, db.CheckReadiness(context.Background()), boom)
}

func TestInit_WaiterHonorsContext(t *testing.T) {
	release := make(chan struct{})
	db := New("", LoaderFunc(func(context.Context, Execer) error {
		<-release
		return nil
	}), WithLogger(discardLogger()))
	t.Cleanup(func() { _ = db.Close() })

	go func() { _ = db.Init(context.Background()) }()
	require.Eventually(t, func() bool { return db.State() == Initializing }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, db.Init(ctx), context.Canceled)

	close(release)
	require.Eventually(t, func() bool { return db.State() == Ready }, time.Second, time.Millisecond)
}

func TestClose(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	_, err := db.Query(context.Background(), "SELECT 1")
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, db.Init(context.Background()), ErrClosed)
	assert.Equal(t, Closed, db.State())
}

func TestClose_RacingStatementsSeeErrClosed(t *testing.T) {
	db := newTestDB(t)

	// Hold the statement lock so both calls queue behind it, then close.
	db.stmtMu.Lock()
	queryErr := make(chan error, 1)
	insertErr := make(chan error, 1)
	go func() {
		_, err := db.Query(context.Background(), "SELECT 1")
		queryErr <- err
	}()
	go func() {
		insertErr <- db.InsertObservations(context.Background(),
			[]weather.Observation{{ID: "S1", Year: 2023, Month: 1, Day: 3, Date: jan(3), Element: "TAVG", Value: 1}})
	}()
	time.Sleep(20 * time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- db.Close() }()
	require.Eventually(t, func() bool { return db.State() == Closed }, time.Second, time.Millisecond)
	db.stmtMu.Unlock()

	require.NoError(t, <-closed)
	assert.ErrorIs(t, <-queryErr, ErrClosed)
	assert.ErrorIs(t, <-insertErr, ErrClosed)
}

func TestCheckReadiness_Ready(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.CheckReadiness(context.Background()))
}

// --- query façade ---

func TestQuery_NormalizesResult(t *testing.T) {
	db := newTestDB(t)

	res, err := db.Query(context.Background(), "SELECT id, name, sampled FROM stations ORDER BY id")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "sampled"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, table.Row{"id": "S1", "name": "CENTRAL PARK", "sampled": true}, res.Rows[0])
}

func TestQuery_Parameterized(t *testing.T) {
	db := newTestDB(t)

	res, err := db.Query(context.Background(), "SELECT count(*) AS n FROM weather WHERE id = ? AND element = ?", "S1", "TAVG")
	require.NoError(t, err)
	n, ok := res.Rows[0].Int("n")
	require.True(t, ok)
	assert.Equal(t, int64(4), n)
}

func TestQuery_EmptyResultHasColumns(t *testing.T) {
	db := newTestDB(t)

	res, err := db.Query(context.Background(), "SELECT id FROM stations WHERE id = 'nope'")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, res.Columns)
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
}

func TestQuery_EngineErrorPropagates(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Query(context.Background(), "SELECT * FROM no_such_table")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotInitialized)
	assert.Contains(t, err.Error(), "no_such_table")
}

func TestQuery_CountsAndRecordsMetrics(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	db := newTestDB(t, WithMetrics(metrics), WithClock(clockwork.NewFakeClock()))

	_, err := db.Query(context.Background(), "SELECT 1")
	require.NoError(t, err)
	_, err = db.Query(context.Background(), "SELECT broken FROM")
	require.Error(t, err)

	assert.Equal(t, uint64(2), db.Queries())
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.Queries.WithLabelValues("success")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.Queries.WithLabelValues("error")), 1e-9)
	assert.InDelta(t, float64(Ready), testutil.ToFloat64(metrics.DBState), 1e-9)
}

func TestDescribe(t *testing.T) {
	db := newTestDB(t)

	tables, err := db.Describe(context.Background(), "")
	require.NoError(t, err)
	var names []string
	for _, r := range tables.Rows {
		name, _ := r.String("name")
		names = append(names, name)
	}
	assert.ElementsMatch(t, []string{"stations", "weather"}, names)

	cols, err := db.Describe(context.Background(), "weather")
	require.NoError(t, err)
	assert.Len(t, cols.Rows, 7)

	_, err = db.Describe(context.Background(), "weather; DROP TABLE weather")
	require.ErrorIs(t, err, ErrInvalidIdentifier)
}

// --- canned queries ---

func TestStations(t *testing.T) {
	db := newTestDB(t)

	res, err := db.Stations(context.Background())
	require.NoError(t, err)
	stations, err := weather.DecodeStations(res)
	require.NoError(t, err)

	require.Len(t, stations, 2)
	assert.Equal(t, "CENTRAL PARK", stations[0].Name)
	assert.Equal(t, int64(72506), stations[0].WMO)
	assert.Empty(t, stations[1].State)

	one, err := db.Station(context.Background(), "S2")
	require.NoError(t, err)
	require.Len(t, one.Rows, 1)
	none, err := db.Station(context.Background(), "S9")
	require.NoError(t, err)
	assert.Empty(t, none.Rows)
}

func TestMonthlyAverageForStation(t *testing.T) {
	db := newTestDB(t)

	res, err := db.MonthlyAverageForStation(context.Background(), "S1")
	require.NoError(t, err)
	got, err := weather.DecodeMonthlyAverages(res)
	require.NoError(t, err)

	assert.Equal(t, []weather.MonthlyAverage{
		{Date: jan(1), Value: 15},
		{Date: feb(1), Value: 30},
	}, got)
}

func TestWeatherForStationForRange(t *testing.T) {
	db := newTestDB(t)

	res, err := db.WeatherForStationForRange(context.Background(), "S1", jan(2), feb(1))
	require.NoError(t, err)
	obs, err := weather.DecodeObservations(res)
	require.NoError(t, err)

	require.Len(t, obs, 4)
	assert.Equal(t, jan(2), obs[0].Date)
	assert.Equal(t, "PRCP", obs[0].Element)
	assert.Equal(t, feb(1), obs[3].Date)
	assert.Equal(t, weather.Observation{
		ID: "S1", Year: 2023, Month: 2, Day: 1, Date: feb(1), Element: "PRCP", Value: weather.MissingValue,
	}, obs[2])
}

func TestAveragesForStation(t *testing.T) {
	db := newTestDB(t)

	res, err := db.AveragesForStation(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, []string{"month", "element", "value"}, res.Columns)

	got := map[string]float64{}
	for _, r := range res.Rows {
		month, _ := r.String("month")
		element, _ := r.String("element")
		v, _ := r.Float("value")
		got[month+"/"+element] = v
	}
	assert.Equal(t, map[string]float64{
		"January/TAVG":  15,
		"January/PRCP":  6,
		"February/TAVG": 30,
	}, got)
}

func TestWeatherDetailByMonth(t *testing.T) {
	db := newTestDB(t)

	res, err := db.WeatherDetailByMonth(context.Background(), "S1")
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "average", "values", "rainfall", "rainValues"}, res.Columns)
	details := weather.DetailFromRows(res.Rows)
	require.Len(t, details, 2)

	assert.Equal(t, jan(1), details[0].Date)
	assert.InDelta(t, 15.0, details[0].Average, 1e-9)
	assert.Equal(t, []float64{10, 20}, details[0].Values)
	require.NotNil(t, details[0].Rainfall)
	assert.InDelta(t, 12.0, *details[0].Rainfall, 1e-9)
	assert.Equal(t, []float64{5, 7}, details[0].RainValues)

	assert.Equal(t, feb(1), details[1].Date)
	assert.Nil(t, details[1].Rainfall)
	assert.NotContains(t, res.Rows[1], "rainfall")
}

func TestInsertObservations(t *testing.T) {
	db := newTestDB(t)

	obs := []weather.Observation{
		{ID: "S2", Year: 2023, Month: 1, Day: 2, Date: jan(2), Element: "TAVG", Value: 260},
		{ID: "S2", Year: 2023, Month: 1, Day: 3, Date: jan(3), Element: "TAVG", Value: 270},
	}
	require.NoError(t, db.InsertObservations(context.Background(), obs))
	require.NoError(t, db.InsertObservations(context.Background(), nil))

	res, err := db.WeatherForStationForRange(context.Background(), "S2", jan(1), jan(31))
	require.NoError(t, err)
	got, err := weather.DecodeObservations(res)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, obs[1], got[2])
}

func TestInsertObservations_BeforeInit(t *testing.T) {
	db := New("", fixtureLoader)
	err := db.InsertObservations(context.Background(), []weather.Observation{{ID: "X"}})
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "state(9)", State(9).String())
}
