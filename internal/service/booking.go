package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slotbook/slotbook/internal/cache"
	"github.com/slotbook/slotbook/internal/metrics"
	"github.com/slotbook/slotbook/internal/model"
	"github.com/slotbook/slotbook/internal/repository"
)

// transientRetryDelay is the backoff before the single retry of a
// transient store failure.
const transientRetryDelay = 25 * time.Millisecond

// BookingStore is the persistence surface the reservation core needs.
// *repository.Repository satisfies it.
type BookingStore interface {
	BookTimeslot(ctx context.Context, apptID, userID, timeslotID string, now time.Time) (*model.Appointment, error)
	CancelAppointment(ctx context.Context, appointmentID, requesterID string, admin bool, now time.Time) error
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	ListUserAppointments(ctx context.Context, userID string) ([]*model.Appointment, error)
	ListAllAppointments(ctx context.Context) ([]*model.Appointment, error)
	CreateTimeslot(ctx context.Context, slot *model.Timeslot) error
	GetTimeslot(ctx context.Context, id string) (*model.Timeslot, error)
	DeleteTimeslot(ctx context.Context, id string) error
	ListOpenTimeslots(ctx context.Context, now time.Time) ([]*model.Timeslot, error)
	ListAllTimeslots(ctx context.Context) ([]*model.Timeslot, error)
	StatsSnapshot(ctx context.Context, now time.Time) (*model.Stats, error)
}

// ListingCache caches the public open-slot listing. *cache.Cache
// satisfies it. May be nil to disable caching.
type ListingCache interface {
	GetOpenTimeslots(ctx context.Context) ([]*model.Timeslot, error)
	SetOpenTimeslots(ctx context.Context, slots []*model.Timeslot) error
	InvalidateOpenTimeslots(ctx context.Context) error
}

// BookingService is the reservation core: it owns booking,
// cancellation and slot management semantics.
type BookingService struct {
	store        BookingStore
	cache        ListingCache
	metrics      metrics.Recorder
	storeTimeout time.Duration
	now          func() time.Time
}

// NewBookingService creates a new BookingService.
func NewBookingService(store BookingStore, listings ListingCache, storeTimeout time.Duration, recorder metrics.Recorder) *BookingService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &BookingService{
		store:        store,
		cache:        listings,
		metrics:      recorder,
		storeTimeout: storeTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Book reserves a timeslot for a user. Exactly one booking can win a
// slot; the loser of a race gets ErrUnavailable or ErrConflict.
func (s *BookingService) Book(ctx context.Context, userID, timeslotID string) (*model.Appointment, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveBookingDuration(time.Since(start))
	}()

	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	var appt *model.Appointment
	err := s.withRetry(ctx, func() error {
		var err error
		appt, err = s.store.BookTimeslot(ctx, newULID(), userID, timeslotID, s.now())
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrBookingConflict) {
			s.metrics.IncBookingConflict()
		}
		return nil, mapStoreError(err)
	}

	s.metrics.IncBookingCreated()
	s.invalidateListing(ctx)

	return appt, nil
}

// Cancel removes an appointment. Owners can cancel their own upcoming
// appointments; admins can revoke any appointment at any time.
func (s *BookingService) Cancel(ctx context.Context, requester model.Principal, appointmentID string) error {
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	err := s.withRetry(ctx, func() error {
		return s.store.CancelAppointment(ctx, appointmentID, requester.UserID, requester.IsAdmin, s.now())
	})
	if err != nil {
		return mapStoreError(err)
	}

	s.metrics.IncBookingCancelled()
	s.invalidateListing(ctx)

	return nil
}

// GetAppointment returns an appointment visible to the requester.
// Non-admins only see their own.
func (s *BookingService) GetAppointment(ctx context.Context, requester model.Principal, appointmentID string) (*model.Appointment, error) {
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if !requester.IsAdmin && !requester.Owns(appt) {
		// Existence of other users' appointments is not disclosed.
		return nil, ErrNotFound
	}

	return appt, nil
}

// ListMyAppointments returns the requester's appointments, newest first.
func (s *BookingService) ListMyAppointments(ctx context.Context, userID string) ([]*model.Appointment, error) {
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	appts, err := s.store.ListUserAppointments(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return appts, nil
}

// ListAllAppointments returns every appointment. Admin only, enforced
// at the routing layer.
func (s *BookingService) ListAllAppointments(ctx context.Context) ([]*model.Appointment, error) {
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	appts, err := s.store.ListAllAppointments(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return appts, nil
}

// CreateTimeslot adds a slot to the calendar. Overlapping ranges are
// rejected, including under concurrent creation.
func (s *BookingService) CreateTimeslot(ctx context.Context, adminID string, start, end time.Time, available bool) (*model.Timeslot, error) {
	if !start.Before(end) {
		return nil, ErrInvalidRange
	}

	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	slot := &model.Timeslot{
		ID:        newULID(),
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
		Available: available,
		CreatedBy: &adminID,
		CreatedAt: s.now(),
	}

	err := s.withRetry(ctx, func() error {
		return s.store.CreateTimeslot(ctx, slot)
	})
	if err != nil {
		if errors.Is(err, repository.ErrTimeslotOverlap) {
			s.metrics.IncTimeslotOverlapRejected()
		}
		return nil, mapStoreError(err)
	}

	s.metrics.IncTimeslotCreated()
	s.invalidateListing(ctx)

	return slot, nil
}

// DeleteTimeslot removes a slot. Slots with an active appointment are
// rejected; the appointment must be revoked first.
func (s *BookingService) DeleteTimeslot(ctx context.Context, timeslotID string) error {
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	err := s.withRetry(ctx, func() error {
		return s.store.DeleteTimeslot(ctx, timeslotID)
	})
	if err != nil {
		return mapStoreError(err)
	}

	s.metrics.IncTimeslotDeleted()
	s.invalidateListing(ctx)

	return nil
}

// ListOpenTimeslots returns bookable future slots, soonest first.
// Cache-first; the database decides actual booking outcomes, so a
// slightly stale listing is acceptable.
func (s *BookingService) ListOpenTimeslots(ctx context.Context) ([]*model.Timeslot, error) {
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	if s.cache != nil {
		cached, err := s.cache.GetOpenTimeslots(ctx)
		if err == nil {
			s.metrics.IncListingCacheHit()
			return cached, nil
		}
		if errors.Is(err, cache.ErrCacheMiss) {
			s.metrics.IncListingCacheMiss()
		}
	}

	slots, err := s.store.ListOpenTimeslots(ctx, s.now())
	if err != nil {
		return nil, mapStoreError(err)
	}

	if s.cache != nil {
		_ = s.cache.SetOpenTimeslots(ctx, slots)
	}

	return slots, nil
}

// ListAllTimeslots returns every slot, including past and booked ones.
// Admin only, enforced at the routing layer.
func (s *BookingService) ListAllTimeslots(ctx context.Context) ([]*model.Timeslot, error) {
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	slots, err := s.store.ListAllTimeslots(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return slots, nil
}

// Stats returns a snapshot-consistent view of the dashboard counters.
func (s *BookingService) Stats(ctx context.Context) (*model.Stats, error) {
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	stats, err := s.store.StatsSnapshot(ctx, s.now())
	if err != nil {
		return nil, mapStoreError(err)
	}
	return stats, nil
}

// withStoreTimeout bounds a store operation with the configured timeout.
func (s *BookingService) withStoreTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// withRetry runs fn, retrying once after a short pause if the store
// reported a transient failure.
func (s *BookingService) withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !errors.Is(err, repository.ErrTransient) {
		return err
	}

	s.metrics.IncTransientRetry()

	select {
	case <-time.After(transientRetryDelay):
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrTransient, ctx.Err())
	}

	return fn()
}

// invalidateListing drops the cached calendar after a write. Failures
// are tolerated, the entry expires on its own.
func (s *BookingService) invalidateListing(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.InvalidateOpenTimeslots(ctx)
}

// mapStoreError translates repository sentinels into service sentinels.
func mapStoreError(err error) error {
	switch {
	case errors.Is(err, repository.ErrTimeslotNotFound),
		errors.Is(err, repository.ErrAppointmentNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrNotOwner):
		return ErrForbidden
	case errors.Is(err, repository.ErrTimeslotUnavailable):
		return ErrUnavailable
	case errors.Is(err, repository.ErrBookingConflict):
		return ErrConflict
	case errors.Is(err, repository.ErrPastTimeslot):
		return ErrPastAppointment
	case errors.Is(err, repository.ErrTimeslotOverlap):
		return ErrOverlap
	case errors.Is(err, repository.ErrActiveBookings):
		return ErrHasActiveBookings
	case errors.Is(err, repository.ErrEmailExists):
		return ErrEmailTaken
	case errors.Is(err, repository.ErrTransient):
		return fmt.Errorf("%w: %v", ErrTransient, err)
	default:
		return err
	}
}

// newULID generates a lexicographically sortable unique ID.
func newULID() string {
	return ulid.Make().String()
}
