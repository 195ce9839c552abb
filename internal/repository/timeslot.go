package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/slotbook/slotbook/internal/model"
)

// timeslotCreateLockID keys the advisory lock that serializes timeslot
// creation. The overlap check and insert must be indivisible with
// respect to concurrent creations; a transaction-scoped advisory lock
// gives that without locking the whole table for readers.
const timeslotCreateLockID int64 = 7211001

// CreateTimeslot inserts a timeslot after verifying it overlaps no
// existing slot. Overlap uses half-open [start, end) semantics:
// existing.start < end AND existing.end > start.
func (r *Repository) CreateTimeslot(ctx context.Context, slot *model.Timeslot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return classify("begin create timeslot", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, timeslotCreateLockID); err != nil {
		return classify("lock timeslot creation", err)
	}

	var overlaps bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM timeslots
			WHERE start_time < $2 AND end_time > $1
		)`, slot.StartTime, slot.EndTime,
	).Scan(&overlaps)
	if err != nil {
		return classify("check timeslot overlap", err)
	}
	if overlaps {
		return ErrTimeslotOverlap
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO timeslots (id, start_time, end_time, available, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		slot.ID, slot.StartTime, slot.EndTime, slot.Available, slot.CreatedBy, slot.CreatedAt,
	)
	if err != nil {
		return classify("insert timeslot", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classify("commit create timeslot", err)
	}
	return nil
}

// GetTimeslot retrieves a timeslot by ID.
func (r *Repository) GetTimeslot(ctx context.Context, id string) (*model.Timeslot, error) {
	query := `
		SELECT id, start_time, end_time, available, created_by, created_at
		FROM timeslots
		WHERE id = $1
	`

	slot, err := scanTimeslot(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTimeslotNotFound
		}
		return nil, classify("get timeslot", err)
	}

	return slot, nil
}

// DeleteTimeslot removes a timeslot. Slots with an active appointment
// are rejected with ErrActiveBookings; the appointment must be revoked
// first so bookings are never silently orphaned.
func (r *Repository) DeleteTimeslot(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return classify("begin delete timeslot", err)
	}
	defer tx.Rollback(ctx)

	var slotID string
	err = tx.QueryRow(ctx, `SELECT id FROM timeslots WHERE id = $1 FOR UPDATE`, id).Scan(&slotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTimeslotNotFound
		}
		return classify("lock timeslot", err)
	}

	var booked bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM appointments WHERE timeslot_id = $1)`, id,
	).Scan(&booked)
	if err != nil {
		return classify("check active bookings", err)
	}
	if booked {
		return ErrActiveBookings
	}

	if _, err := tx.Exec(ctx, `DELETE FROM timeslots WHERE id = $1`, id); err != nil {
		return classify("delete timeslot", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classify("commit delete timeslot", err)
	}
	return nil
}

// ListOpenTimeslots returns available slots that have not yet ended,
// ordered by start time ascending. This is the public calendar view.
func (r *Repository) ListOpenTimeslots(ctx context.Context, now time.Time) ([]*model.Timeslot, error) {
	query := `
		SELECT id, start_time, end_time, available, created_by, created_at
		FROM timeslots
		WHERE available = true AND end_time >= $1
		ORDER BY start_time ASC
	`

	return r.queryTimeslots(ctx, query, now)
}

// ListAllTimeslots returns every timeslot ordered by start time.
// Admin-only surface.
func (r *Repository) ListAllTimeslots(ctx context.Context) ([]*model.Timeslot, error) {
	query := `
		SELECT id, start_time, end_time, available, created_by, created_at
		FROM timeslots
		ORDER BY start_time ASC
	`

	return r.queryTimeslots(ctx, query)
}

func (r *Repository) queryTimeslots(ctx context.Context, query string, args ...any) ([]*model.Timeslot, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list timeslots", err)
	}
	defer rows.Close()

	var slots []*model.Timeslot
	for rows.Next() {
		slot, err := scanTimeslot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan timeslot: %w", err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeslots: %w", err)
	}

	return slots, nil
}

// scanTimeslot scans a single row into a Timeslot model.
func scanTimeslot(row pgx.Row) (*model.Timeslot, error) {
	var slot model.Timeslot
	err := row.Scan(
		&slot.ID,
		&slot.StartTime,
		&slot.EndTime,
		&slot.Available,
		&slot.CreatedBy,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}
