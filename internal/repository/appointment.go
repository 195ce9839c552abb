package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/slotbook/slotbook/internal/model"
)

// BookTimeslot atomically books a timeslot for a user. The slot row is
// locked for the duration of the transaction, so "check availability"
// and "insert appointment + flip availability" are indivisible with
// respect to any concurrent booking attempt on the same slot.
//
// The unique index on appointments(timeslot_id) is the backstop: if a
// competing transaction slips an appointment in anyway, the insert
// fails and the caller sees ErrBookingConflict.
func (r *Repository) BookTimeslot(ctx context.Context, apptID, userID, timeslotID string, now time.Time) (*model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, classify("begin booking", err)
	}
	defer tx.Rollback(ctx)

	var slot model.Timeslot
	err = tx.QueryRow(ctx,
		`SELECT id, start_time, end_time, available
		 FROM timeslots
		 WHERE id = $1
		 FOR UPDATE`, timeslotID,
	).Scan(&slot.ID, &slot.StartTime, &slot.EndTime, &slot.Available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTimeslotNotFound
		}
		return nil, classify("lock timeslot", err)
	}

	if !slot.Available || slot.IsPast(now) {
		return nil, ErrTimeslotUnavailable
	}

	appt := &model.Appointment{
		ID:         apptID,
		UserID:     userID,
		TimeslotID: timeslotID,
		CreatedAt:  now,
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO appointments (id, user_id, timeslot_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		appt.ID, appt.UserID, appt.TimeslotID, appt.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrBookingConflict
		}
		return nil, classify("insert appointment", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE timeslots SET available = false WHERE id = $1`, timeslotID,
	); err != nil {
		return nil, classify("flip availability", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify("commit booking", err)
	}

	slot.Available = false
	appt.Timeslot = &slot
	return appt, nil
}

// CancelAppointment atomically deletes an appointment and re-opens its
// timeslot. Preconditions are checked inside the same transaction:
// non-admin requesters must own the appointment, and may only cancel
// slots that have not yet ended. Admins revoke regardless of both.
//
// Availability is restored only when no other active appointment still
// references the slot. Uniqueness makes "another appointment" currently
// impossible, but the check runs in the same transaction so the restore
// stays correct if that invariant is ever relaxed.
func (r *Repository) CancelAppointment(ctx context.Context, appointmentID, requesterID string, admin bool, now time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return classify("begin cancel", err)
	}
	defer tx.Rollback(ctx)

	var (
		ownerID    string
		timeslotID string
		endTime    time.Time
	)
	err = tx.QueryRow(ctx,
		`SELECT a.user_id, a.timeslot_id, t.end_time
		 FROM appointments a
		 JOIN timeslots t ON t.id = a.timeslot_id
		 WHERE a.id = $1
		 FOR UPDATE OF a, t`, appointmentID,
	).Scan(&ownerID, &timeslotID, &endTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAppointmentNotFound
		}
		return classify("lock appointment", err)
	}

	if !admin {
		if ownerID != requesterID {
			return ErrNotOwner
		}
		if endTime.Before(now) {
			return ErrPastTimeslot
		}
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM appointments WHERE id = $1`, appointmentID,
	); err != nil {
		return classify("delete appointment", err)
	}

	var claimed bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM appointments WHERE timeslot_id = $1)`, timeslotID,
	).Scan(&claimed)
	if err != nil {
		return classify("check remaining claims", err)
	}
	if !claimed {
		if _, err := tx.Exec(ctx,
			`UPDATE timeslots SET available = true WHERE id = $1`, timeslotID,
		); err != nil {
			return classify("restore availability", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classify("commit cancel", err)
	}
	return nil
}

// GetAppointment retrieves an appointment with its timeslot joined.
func (r *Repository) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	query := `
		SELECT a.id, a.user_id, a.timeslot_id, a.created_at,
		       t.id, t.start_time, t.end_time, t.available, t.created_by, t.created_at
		FROM appointments a
		JOIN timeslots t ON t.id = a.timeslot_id
		WHERE a.id = $1
	`

	appt, err := scanAppointment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, classify("get appointment", err)
	}

	return appt, nil
}

// ListUserAppointments returns a user's appointments, newest first.
func (r *Repository) ListUserAppointments(ctx context.Context, userID string) ([]*model.Appointment, error) {
	query := `
		SELECT a.id, a.user_id, a.timeslot_id, a.created_at,
		       t.id, t.start_time, t.end_time, t.available, t.created_by, t.created_at
		FROM appointments a
		JOIN timeslots t ON t.id = a.timeslot_id
		WHERE a.user_id = $1
		ORDER BY a.created_at DESC
	`

	return r.queryAppointments(ctx, query, userID)
}

// ListAllAppointments returns every appointment, newest first.
// Admin-only surface.
func (r *Repository) ListAllAppointments(ctx context.Context) ([]*model.Appointment, error) {
	query := `
		SELECT a.id, a.user_id, a.timeslot_id, a.created_at,
		       t.id, t.start_time, t.end_time, t.available, t.created_by, t.created_at
		FROM appointments a
		JOIN timeslots t ON t.id = a.timeslot_id
		ORDER BY a.created_at DESC
	`

	return r.queryAppointments(ctx, query)
}

func (r *Repository) queryAppointments(ctx context.Context, query string, args ...any) ([]*model.Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list appointments", err)
	}
	defer rows.Close()

	var appts []*model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, appt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}

	return appts, nil
}

// scanAppointment scans an appointment row with its joined timeslot.
func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var (
		appt model.Appointment
		slot model.Timeslot
	)
	err := row.Scan(
		&appt.ID,
		&appt.UserID,
		&appt.TimeslotID,
		&appt.CreatedAt,
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
	appt.Timeslot = &slot
	return &appt, nil
}
