package duck

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/weather-explorer/internal/weather"
)

const insertObservation = `INSERT INTO weather (id, year, month, day, date, element, value) VALUES (?, ?, ?, ?, ?::DATE, ?, ?)`

// InsertObservations appends observations to the weather table in one
// transaction. Either every row is written or none is.
func (d *DB) InsertObservations(ctx context.Context, obs []weather.Observation) (err error) {
	if len(obs) == 0 {
		return nil
	}
	d.stmtMu.Lock()
	conn, err := d.connection()
	if err != nil {
		d.stmtMu.Unlock()
		return err
	}

	n := d.counter.Add(1)
	start := d.clock.Now()
	defer func() {
		d.stmtMu.Unlock()
		d.observe(n, insertObservation, d.clock.Since(start), len(obs), err)
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback() //nolint:errcheck // the insert error is what matters
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertObservation)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err = stmt.ExecContext(ctx,
			o.ID, int32(o.Year), int32(o.Month), int32(o.Day),
			o.Date.Format(time.DateOnly), o.Element, int32(o.Value),
		); err != nil {
			return fmt.Errorf("insert observation %s %s %s: %w", o.ID, o.Element, o.Date.Format(time.DateOnly), err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}
