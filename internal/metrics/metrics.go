// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Reservation metrics
	IncBookingCreated()
	IncBookingConflict()
	IncBookingCancelled()
	ObserveBookingDuration(duration time.Duration)

	// Slot management metrics
	IncTimeslotCreated()
	IncTimeslotOverlapRejected()
	IncTimeslotDeleted()

	// Calendar listing metrics
	IncListingCacheHit()
	IncListingCacheMiss()

	// Auth metrics
	IncLoginSuccess()
	IncLoginFailure()

	// Store metrics
	IncTransientRetry()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
