package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/weather-explorer/internal/table"
	"github.com/couchcryptid/weather-explorer/internal/weather"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dashboard answers the chart queries. *dashboard.Service implements it.
type Dashboard interface {
	Describe(ctx context.Context, name string) (table.Result, error)
	Stations(ctx context.Context, sampledOnly bool) ([]weather.Station, error)
	Station(ctx context.Context, id string) (weather.StationDetail, error)
	MonthlyAverages(ctx context.Context, station string) ([]weather.MonthlyAverage, error)
	TimeSeries(ctx context.Context, station string, start, end time.Time) ([]weather.DailyWeather, error)
	Averages(ctx context.Context, station string) ([]weather.MonthlyNormal, error)
	Detail(ctx context.Context, station string, start, end time.Time) ([]weather.MonthlyDetail, error)
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the clock used for default date ranges.
func WithClock(c clockwork.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// Server exposes the weather API alongside health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	dashboard  Dashboard
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /api routes plus /healthz, /readyz,
// and /metrics.
func NewServer(addr string, dash Dashboard, ready sharedobs.ReadinessChecker, logger *slog.Logger, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		dashboard: dash,
		clock:     clockwork.NewRealClock(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux.HandleFunc("GET /api/tables", s.handleTables)
	mux.HandleFunc("GET /api/tables/{name}", s.handleTables)
	mux.HandleFunc("GET /api/stations", s.handleStations)
	mux.HandleFunc("GET /api/stations/{id}", s.handleStation)
	mux.HandleFunc("GET /api/stations/{id}/timeseries", s.handleTimeSeries)
	mux.HandleFunc("GET /api/stations/{id}/monthly", s.handleMonthly)
	mux.HandleFunc("GET /api/stations/{id}/averages", s.handleAverages)
	mux.HandleFunc("GET /api/stations/{id}/detail", s.handleDetail)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	res, err := s.dashboard.Describe(r.Context(), r.PathValue("name"))
	s.respond(w, r, res, err)
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	sampled, err := parseBool(r.URL.Query().Get("sampled"))
	if err != nil {
		s.writeError(w, r, badRequest(err))
		return
	}
	stations, err := s.dashboard.Stations(r.Context(), sampled)
	s.respond(w, r, stations, err)
}

func (s *Server) handleStation(w http.ResponseWriter, r *http.Request) {
	station, err := s.dashboard.Station(r.Context(), r.PathValue("id"))
	s.respond(w, r, station, err)
}

func (s *Server) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.defaultRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	series, err := s.dashboard.TimeSeries(r.Context(), r.PathValue("id"), start, end)
	s.respond(w, r, series, err)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	monthly, err := s.dashboard.MonthlyAverages(r.Context(), r.PathValue("id"))
	s.respond(w, r, monthly, err)
}

func (s *Server) handleAverages(w http.ResponseWriter, r *http.Request) {
	normals, err := s.dashboard.Averages(r.Context(), r.PathValue("id"))
	s.respond(w, r, normals, err)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	detail, err := s.dashboard.Detail(r.Context(), r.PathValue("id"), start, end)
	s.respond(w, r, detail, err)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
