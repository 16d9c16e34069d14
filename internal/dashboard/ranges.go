package dashboard

import (
	"errors"
	"fmt"
	"time"
)

// DefaultWindowDays is the length of the time-series range used when start
// or end is omitted.
const DefaultWindowDays = 365

// ErrInvalidRange is returned when a range ends before it starts.
var ErrInvalidRange = errors.New("invalid date range")

// CheckRange rejects a range whose end is before its start. A zero bound is
// open and always valid.
func CheckRange(start, end time.Time) error {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange,
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return nil
}

// DefaultRange fills omitted time-series bounds. end defaults to the UTC day
// of now, or to start when start is later; start defaults to
// DefaultWindowDays before end.
func DefaultRange(now, start, end time.Time) (time.Time, time.Time) {
	if end.IsZero() {
		end = Today(now)
		if !start.IsZero() && end.Before(start) {
			end = start
		}
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -DefaultWindowDays)
	}
	return start, end
}

// Today truncates now to midnight UTC.
func Today(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
