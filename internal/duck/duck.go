// Package duck is the query façade over an embedded DuckDB database.
//
// A [DB] owns one connection for its whole lifetime. It is created with [New],
// prepared with [DB.Init], used through [DB.Query] and the canned weather
// queries, and released with [DB.Close]. Init is single-flight: concurrent
// callers wait for the same in-flight initialization, and its outcome is
// memoized.
package duck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-explorer/internal/observability"
	"github.com/couchcryptid/weather-explorer/internal/table"
	"github.com/jonboulle/clockwork"

	_ "github.com/marcboeker/go-duckdb" // registers the "duckdb" driver
)

var (
	// ErrNotInitialized is returned by queries issued before Init succeeds.
	ErrNotInitialized = errors.New("duck: database has not been initialized")
	// ErrClosed is returned by any operation after Close.
	ErrClosed = errors.New("duck: database is closed")
)

// State is the lifecycle position of a DB.
type State int32

const (
	Unstarted State = iota
	Initializing
	Ready
	Failed
	Closed
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Execer runs statements that return no rows. *sql.Conn and *sql.Tx satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Loader creates and fills tables on a freshly opened connection.
type Loader interface {
	Load(ctx context.Context, conn Execer) error
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, conn Execer) error

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, conn Execer) error { return f(ctx, conn) }

// Option configures a DB.
type Option func(*DB)

// WithClock sets the clock used to time queries and initialization.
func WithClock(c clockwork.Clock) Option {
	return func(d *DB) { d.clock = c }
}

// WithLogger sets the logger for query timing and lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(d *DB) { d.logger = l }
}

// WithMetrics records query and lifecycle metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *DB) { d.metrics = m }
}

// DB is a handle on one DuckDB database and its single connection.
type DB struct {
	path    string
	loader  Loader
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu    sync.Mutex // guards the fields below
	state State
	done  chan struct{}
	err   error
	db    *sql.DB
	conn  *sql.Conn

	// stmtMu serializes statements on conn.
	stmtMu  sync.Mutex
	counter atomic.Uint64
}

// New returns an uninitialized handle. path is the database file; empty means
// in-memory. loader runs once, during Init.
func New(path string, loader Loader, opts ...Option) *DB {
	d := &DB{
		path:   path,
		loader: loader,
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the current lifecycle state.
func (d *DB) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Init opens the database and runs the loader. Calls made while an
// initialization is in flight wait for it and return its result. After a
// failure every call returns the same error; after success Init is a no-op.
// ctx bounds the caller's wait; the first caller's ctx also bounds the work.
func (d *DB) Init(ctx context.Context) error {
	d.mu.Lock()
	switch d.state {
	case Ready:
		d.mu.Unlock()
		return nil
	case Failed:
		err := d.err
		d.mu.Unlock()
		return err
	case Closed:
		d.mu.Unlock()
		return ErrClosed
	case Initializing:
		done := d.done
		d.mu.Unlock()
		select {
		case <-done:
			return d.outcome()
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	d.done = make(chan struct{})
	d.setStateLocked(Initializing)
	d.mu.Unlock()

	start := d.clock.Now()
	db, conn, err := d.open(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	defer close(d.done)

	if d.state == Closed {
		// Close raced with initialization; release what was opened.
		closeAll(conn, db)
		return ErrClosed
	}
	if err != nil {
		d.err = err
		d.setStateLocked(Failed)
		d.logger.Error("database initialization failed", "error", err)
		return err
	}
	d.db, d.conn = db, conn
	d.setStateLocked(Ready)

	elapsed := d.clock.Since(start)
	if d.metrics != nil {
		d.metrics.InitDuration.Observe(elapsed.Seconds())
	}
	d.logger.Info("database ready", "path", d.describePath(), "duration", elapsed)
	return nil
}

func (d *DB) open(ctx context.Context) (*sql.DB, *sql.Conn, error) {
	db, err := sql.Open("duckdb", d.path)
	if err != nil {
		return nil, nil, fmt.Errorf("open duckdb: %w", err)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, nil, fmt.Errorf("connect duckdb: %w", err)
	}
	if d.loader != nil {
		if err := d.loader.Load(ctx, conn); err != nil {
			closeAll(conn, db)
			return nil, nil, fmt.Errorf("load tables: %w", err)
		}
	}
	return db, conn, nil
}

func (d *DB) outcome() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case Ready:
		return nil
	case Failed:
		return d.err
	case Closed:
		return ErrClosed
	default:
		return ErrNotInitialized
	}
}

// CheckReadiness reports nil once the database is ready to serve queries.
func (d *DB) CheckReadiness(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case Ready:
		return nil
	case Failed:
		return fmt.Errorf("database initialization failed: %w", d.err)
	case Closed:
		return ErrClosed
	default:
		return fmt.Errorf("database is %s", d.state)
	}
}

// Close releases the connection. Queries after Close fail with ErrClosed.
func (d *DB) Close() error {
	d.mu.Lock()
	if d.state == Closed {
		d.mu.Unlock()
		return nil
	}
	conn, db := d.conn, d.db
	d.conn, d.db = nil, nil
	d.setStateLocked(Closed)
	d.mu.Unlock()

	d.stmtMu.Lock()
	defer d.stmtMu.Unlock()
	return closeAll(conn, db)
}

func (d *DB) connection() (*sql.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case Ready:
		return d.conn, nil
	case Closed:
		return nil, ErrClosed
	default:
		return nil, ErrNotInitialized
	}
}

// Query runs sqlText, binding params when any are given, and normalizes the
// result to {columns, rows}. Engine errors are returned unchanged.
func (d *DB) Query(ctx context.Context, sqlText string, params ...any) (table.Result, error) {
	// The state is read under stmtMu so a concurrent Close cannot hand over
	// a connection it is about to close.
	d.stmtMu.Lock()
	conn, err := d.connection()
	if err != nil {
		d.stmtMu.Unlock()
		return table.Result{}, err
	}

	n := d.counter.Add(1)
	start := d.clock.Now()
	res, err := runQuery(ctx, conn, sqlText, params)
	d.stmtMu.Unlock()

	elapsed := d.clock.Since(start)
	d.observe(n, sqlText, elapsed, len(res.Rows), err)
	return res, err
}

func (d *DB) observe(n uint64, sqlText string, elapsed time.Duration, rows int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	if d.metrics != nil {
		d.metrics.Queries.WithLabelValues(outcome).Inc()
		d.metrics.QueryDuration.Observe(elapsed.Seconds())
	}
	d.logger.Debug("query",
		"n", n,
		"sql", compact(sqlText),
		"duration", elapsed,
		"rows", rows,
		"outcome", outcome,
	)
}

// Queries returns the number of queries issued so far.
func (d *DB) Queries() uint64 { return d.counter.Load() }

func runQuery(ctx context.Context, conn *sql.Conn, sqlText string, params []any) (table.Result, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if len(params) > 0 {
		stmt, perr := conn.PrepareContext(ctx, sqlText)
		if perr != nil {
			return table.Result{}, perr
		}
		defer stmt.Close()
		rows, err = stmt.QueryContext(ctx, params...)
	} else {
		rows, err = conn.QueryContext(ctx, sqlText)
	}
	if err != nil {
		return table.Result{}, err
	}
	defer rows.Close()
	return normalize(rows)
}

func normalize(rows *sql.Rows) (table.Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return table.Result{}, err
	}
	res := table.Result{Columns: cols, Rows: []table.Row{}}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return table.Result{}, err
		}
		row := make(table.Row, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return table.Result{}, err
	}
	return res, nil
}

func (d *DB) setStateLocked(s State) {
	d.state = s
	if d.metrics != nil {
		d.metrics.DBState.Set(float64(s))
	}
}

func (d *DB) describePath() string {
	if d.path == "" {
		return ":memory:"
	}
	return d.path
}

func closeAll(conn *sql.Conn, db *sql.DB) error {
	var errs []error
	if conn != nil {
		errs = append(errs, conn.Close())
	}
	if db != nil {
		errs = append(errs, db.Close())
	}
	return errors.Join(errs...)
}

// compact collapses whitespace so multi-line SQL logs on one line.
func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
