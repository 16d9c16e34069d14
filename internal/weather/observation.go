package weather

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RawObservation is the flat JSON produced by upstream collectors. Date is
// YYYY-MM-DD; year, month and day are optional and derived from it.
type RawObservation struct {
	ID      string `json:"id"`
	Year    int    `json:"year,omitempty"`
	Month   int    `json:"month,omitempty"`
	Day     int    `json:"day,omitempty"`
	Date    string `json:"date"`
	Element string `json:"element"`
	Value   *int   `json:"value"`
}

var knownElements = map[string]struct{}{
	ElementTMAX: {},
	ElementTMIN: {},
	ElementTAVG: {},
	ElementPRCP: {},
}

// ParseObservation decodes and validates one raw observation message.
func ParseObservation(data []byte) (Observation, error) {
	var raw RawObservation
	if err := json.Unmarshal(data, &raw); err != nil {
		return Observation{}, fmt.Errorf("parse observation: %w", err)
	}
	return raw.Normalize()
}

// Normalize validates the raw record and derives its calendar fields.
func (r RawObservation) Normalize() (Observation, error) {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		return Observation{}, errors.New("observation: id is required")
	}
	element := strings.ToUpper(strings.TrimSpace(r.Element))
	if _, ok := knownElements[element]; !ok {
		return Observation{}, fmt.Errorf("observation: unknown element %q", r.Element)
	}
	date, err := time.Parse(time.DateOnly, strings.TrimSpace(r.Date))
	if err != nil {
		return Observation{}, fmt.Errorf("observation: invalid date %q: %w", r.Date, err)
	}
	if r.Value == nil {
		return Observation{}, errors.New("observation: value is required")
	}
	if r.Year != 0 && (r.Year != date.Year() || r.Month != int(date.Month()) || r.Day != date.Day()) {
		return Observation{}, fmt.Errorf("observation: year/month/day %04d-%02d-%02d disagree with date %s",
			r.Year, r.Month, r.Day, r.Date)
	}
	return Observation{
		ID:      id,
		Year:    date.Year(),
		Month:   int(date.Month()),
		Day:     date.Day(),
		Date:    date,
		Element: element,
		Value:   *r.Value,
	}, nil
}

// Missing reports whether the observation carries the missing-value sentinel.
func (o Observation) Missing() bool { return o.Value == MissingValue }
