package handler

import (
	"fmt"
	"net/http"

	"github.com/slotbook/slotbook/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "slotbook_bookings_created_total %d\n", snap.BookingsCreated)
	writeMetric(w, "slotbook_booking_conflicts_total %d\n", snap.BookingConflicts)
	writeMetric(w, "slotbook_bookings_cancelled_total %d\n", snap.BookingsCancelled)
	writeMetric(w, "slotbook_booking_duration_seconds_count %d\n", snap.BookingDurationCount)
	writeMetric(w, "slotbook_booking_duration_seconds_sum %.6f\n", float64(snap.BookingDurationTotalNs)/1e9)

	writeMetric(w, "slotbook_timeslots_created_total %d\n", snap.TimeslotsCreated)
	writeMetric(w, "slotbook_timeslot_overlaps_rejected_total %d\n", snap.TimeslotOverlapsRejected)
	writeMetric(w, "slotbook_timeslots_deleted_total %d\n", snap.TimeslotsDeleted)

	writeMetric(w, "slotbook_listing_cache_hits_total %d\n", snap.ListingCacheHits)
	writeMetric(w, "slotbook_listing_cache_misses_total %d\n", snap.ListingCacheMisses)

	writeMetric(w, "slotbook_logins_total{status=\"success\"} %d\n", snap.LoginSuccesses)
	writeMetric(w, "slotbook_logins_total{status=\"failure\"} %d\n", snap.LoginFailures)

	writeMetric(w, "slotbook_store_transient_retries_total %d\n", snap.TransientRetries)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
