package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/slotbook/slotbook/internal/model"
)

// StatsSnapshot reads the dashboard counts inside a single
// repeatable-read transaction so the four counts describe one
// consistent state of the store.
func (r *Repository) StatsSnapshot(ctx context.Context, now time.Time) (*model.Stats, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, classify("begin stats snapshot", err)
	}
	defer tx.Rollback(ctx)

	var stats model.Stats

	if err := tx.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&stats.TotalUsers); err != nil {
		return nil, classify("count users", err)
	}
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM appointments`).Scan(&stats.TotalAppointments); err != nil {
		return nil, classify("count appointments", err)
	}
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM timeslots`).Scan(&stats.TotalTimeslots); err != nil {
		return nil, classify("count timeslots", err)
	}
	err = tx.QueryRow(ctx,
		`SELECT count(*)
		 FROM appointments a
		 JOIN timeslots t ON t.id = a.timeslot_id
		 WHERE t.end_time >= $1`, now,
	).Scan(&stats.UpcomingAppointments)
	if err != nil {
		return nil, classify("count upcoming appointments", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify("commit stats snapshot", err)
	}

	return &stats, nil
}
