package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	BookingsCreated          uint64
	BookingConflicts         uint64
	BookingsCancelled        uint64
	BookingDurationCount     uint64
	BookingDurationTotalNs   int64
	TimeslotsCreated         uint64
	TimeslotOverlapsRejected uint64
	TimeslotsDeleted         uint64
	ListingCacheHits         uint64
	ListingCacheMisses       uint64
	LoginSuccesses           uint64
	LoginFailures            uint64
	TransientRetries         uint64
}

// InMemoryRecorder stores metrics in memory. Used by tests and the
// metrics endpoint.
type InMemoryRecorder struct {
	bookingsCreated          uint64
	bookingConflicts         uint64
	bookingsCancelled        uint64
	bookingDurationCount     uint64
	bookingDurationTotalNs   int64
	timeslotsCreated         uint64
	timeslotOverlapsRejected uint64
	timeslotsDeleted         uint64
	listingCacheHits         uint64
	listingCacheMisses       uint64
	loginSuccesses           uint64
	loginFailures            uint64
	transientRetries         uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		BookingsCreated:          atomic.LoadUint64(&m.bookingsCreated),
		BookingConflicts:         atomic.LoadUint64(&m.bookingConflicts),
		BookingsCancelled:        atomic.LoadUint64(&m.bookingsCancelled),
		BookingDurationCount:     atomic.LoadUint64(&m.bookingDurationCount),
		BookingDurationTotalNs:   atomic.LoadInt64(&m.bookingDurationTotalNs),
		TimeslotsCreated:         atomic.LoadUint64(&m.timeslotsCreated),
		TimeslotOverlapsRejected: atomic.LoadUint64(&m.timeslotOverlapsRejected),
		TimeslotsDeleted:         atomic.LoadUint64(&m.timeslotsDeleted),
		ListingCacheHits:         atomic.LoadUint64(&m.listingCacheHits),
		ListingCacheMisses:       atomic.LoadUint64(&m.listingCacheMisses),
		LoginSuccesses:           atomic.LoadUint64(&m.loginSuccesses),
		LoginFailures:            atomic.LoadUint64(&m.loginFailures),
		TransientRetries:         atomic.LoadUint64(&m.transientRetries),
	}
}

// IncBookingCreated increments the booking counter.
func (m *InMemoryRecorder) IncBookingCreated() {
	atomic.AddUint64(&m.bookingsCreated, 1)
}

// IncBookingConflict increments the booking conflict counter.
func (m *InMemoryRecorder) IncBookingConflict() {
	atomic.AddUint64(&m.bookingConflicts, 1)
}

// IncBookingCancelled increments the cancellation counter.
func (m *InMemoryRecorder) IncBookingCancelled() {
	atomic.AddUint64(&m.bookingsCancelled, 1)
}

// ObserveBookingDuration records booking latency.
func (m *InMemoryRecorder) ObserveBookingDuration(duration time.Duration) {
	atomic.AddUint64(&m.bookingDurationCount, 1)
	atomic.AddInt64(&m.bookingDurationTotalNs, duration.Nanoseconds())
}

// IncTimeslotCreated increments the slot creation counter.
func (m *InMemoryRecorder) IncTimeslotCreated() {
	atomic.AddUint64(&m.timeslotsCreated, 1)
}

// IncTimeslotOverlapRejected increments the overlap rejection counter.
func (m *InMemoryRecorder) IncTimeslotOverlapRejected() {
	atomic.AddUint64(&m.timeslotOverlapsRejected, 1)
}

// IncTimeslotDeleted increments the slot deletion counter.
func (m *InMemoryRecorder) IncTimeslotDeleted() {
	atomic.AddUint64(&m.timeslotsDeleted, 1)
}

// IncListingCacheHit increments the listing cache hit counter.
func (m *InMemoryRecorder) IncListingCacheHit() {
	atomic.AddUint64(&m.listingCacheHits, 1)
}

// IncListingCacheMiss increments the listing cache miss counter.
func (m *InMemoryRecorder) IncListingCacheMiss() {
	atomic.AddUint64(&m.listingCacheMisses, 1)
}

// IncLoginSuccess increments the successful login counter.
func (m *InMemoryRecorder) IncLoginSuccess() {
	atomic.AddUint64(&m.loginSuccesses, 1)
}

// IncLoginFailure increments the failed login counter.
func (m *InMemoryRecorder) IncLoginFailure() {
	atomic.AddUint64(&m.loginFailures, 1)
}

// IncTransientRetry increments the transient retry counter.
func (m *InMemoryRecorder) IncTransientRetry() {
	atomic.AddUint64(&m.transientRetries, 1)
}
