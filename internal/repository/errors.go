package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors for repository operations. The service layer maps
// these to its own taxonomy; SQL details never leave this package.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailExists         = errors.New("email already registered")
	ErrTimeslotNotFound    = errors.New("timeslot not found")
	ErrTimeslotUnavailable = errors.New("timeslot unavailable")
	ErrTimeslotOverlap     = errors.New("timeslot overlaps an existing slot")
	ErrBookingConflict     = errors.New("timeslot already booked")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrNotOwner            = errors.New("appointment belongs to another user")
	ErrPastTimeslot        = errors.New("timeslot already ended")
	ErrActiveBookings      = errors.New("timeslot has active bookings")
	ErrTransient           = errors.New("transient store failure")
)

// SQLSTATE classes that indicate a retryable condition.
const (
	sqlstateUniqueViolation   = "23505"
	sqlstateSerializationFail = "40001"
	sqlstateDeadlockDetected  = "40P01"
	sqlstateLockNotAvailable  = "55P03"
)

// isUniqueViolation checks if the error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlstateUniqueViolation
}

// isTransient checks if the error is worth retrying: serialization
// failures, deadlocks and lock timeouts under concurrent load.
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case sqlstateSerializationFail, sqlstateDeadlockDetected, sqlstateLockNotAvailable:
		return true
	}
	return false
}

// classify wraps a low-level pg error into ErrTransient when retryable,
// otherwise wraps it with the given operation name.
func classify(op string, err error) error {
	if isTransient(err) {
		return fmt.Errorf("%w: %s: %v", ErrTransient, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
