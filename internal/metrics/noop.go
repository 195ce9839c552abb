package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncBookingCreated is a no-op.
func (n *NoopRecorder) IncBookingCreated() {}

// IncBookingConflict is a no-op.
func (n *NoopRecorder) IncBookingConflict() {}

// IncBookingCancelled is a no-op.
func (n *NoopRecorder) IncBookingCancelled() {}

// ObserveBookingDuration is a no-op.
func (n *NoopRecorder) ObserveBookingDuration(duration time.Duration) {}

// IncTimeslotCreated is a no-op.
func (n *NoopRecorder) IncTimeslotCreated() {}

// IncTimeslotOverlapRejected is a no-op.
func (n *NoopRecorder) IncTimeslotOverlapRejected() {}

// IncTimeslotDeleted is a no-op.
func (n *NoopRecorder) IncTimeslotDeleted() {}

// IncListingCacheHit is a no-op.
func (n *NoopRecorder) IncListingCacheHit() {}

// IncListingCacheMiss is a no-op.
func (n *NoopRecorder) IncListingCacheMiss() {}

// IncLoginSuccess is a no-op.
func (n *NoopRecorder) IncLoginSuccess() {}

// IncLoginFailure is a no-op.
func (n *NoopRecorder) IncLoginFailure() {}

// IncTransientRetry is a no-op.
func (n *NoopRecorder) IncTransientRetry() {}
