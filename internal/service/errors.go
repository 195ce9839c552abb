// Package service provides business logic for the application.
package service

import "errors"

// Service errors. Handlers map these to HTTP status codes.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrForbidden          = errors.New("operation not allowed for this user")
	ErrInvalidRange       = errors.New("start time must be before end time")
	ErrUnavailable        = errors.New("timeslot is not available")
	ErrConflict           = errors.New("timeslot was booked concurrently")
	ErrPastAppointment    = errors.New("appointment lies in the past")
	ErrOverlap            = errors.New("timeslot overlaps an existing one")
	ErrHasActiveBookings  = errors.New("timeslot has active bookings")
	ErrTransient          = errors.New("temporary store failure, retry")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password does not meet minimum length")
)
