package httpadapter

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-explorer/internal/dashboard"
	"github.com/couchcryptid/weather-explorer/internal/duck"
)

type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

func badRequest(err error) error { return badRequestError{err: err} }

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var br badRequestError
	switch {
	case errors.As(err, &br), errors.Is(err, duck.ErrInvalidIdentifier), errors.Is(err, dashboard.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrStationNotFound):
		return http.StatusNotFound
	case errors.Is(err, duck.ErrNotInitialized), errors.Is(err, duck.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// parseRange reads the optional start and end query parameters. A missing
// parameter is returned as the zero time.
func parseRange(r *http.Request) (start, end time.Time, err error) {
	q := r.URL.Query()
	if start, err = parseDate("start", q.Get("start")); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end, err = parseDate("end", q.Get("end")); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if err := dashboard.CheckRange(start, end); err != nil {
		return time.Time{}, time.Time{}, badRequest(err)
	}
	return start, end, nil
}

// defaultRange is parseRange with omitted bounds filled in by
// dashboard.DefaultRange against the server clock.
func (s *Server) defaultRange(r *http.Request) (start, end time.Time, err error) {
	start, end, err = parseRange(r)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, end = dashboard.DefaultRange(s.clock.Now(), start, end)
	return start, end, nil
}

func parseDate(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, badRequest(fmt.Errorf("invalid %s date %q: want YYYY-MM-DD", name, v))
	}
	return t, nil
}

func parseBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid sampled value %q", v)
	}
	return b, nil
}
