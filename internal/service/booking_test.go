package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/slotbook/slotbook/internal/cache"
	"github.com/slotbook/slotbook/internal/metrics"
	"github.com/slotbook/slotbook/internal/model"
	"github.com/slotbook/slotbook/internal/repository"
)

// fakeBookingStore implements BookingStore with overridable functions.
type fakeBookingStore struct {
	bookFn         func(ctx context.Context, apptID, userID, timeslotID string, now time.Time) (*model.Appointment, error)
	cancelFn       func(ctx context.Context, appointmentID, requesterID string, admin bool, now time.Time) error
	getApptFn      func(ctx context.Context, id string) (*model.Appointment, error)
	listUserFn     func(ctx context.Context, userID string) ([]*model.Appointment, error)
	listAllApptFn  func(ctx context.Context) ([]*model.Appointment, error)
	createSlotFn   func(ctx context.Context, slot *model.Timeslot) error
	getSlotFn      func(ctx context.Context, id string) (*model.Timeslot, error)
	deleteSlotFn   func(ctx context.Context, id string) error
	listOpenFn     func(ctx context.Context, now time.Time) ([]*model.Timeslot, error)
	listAllSlotsFn func(ctx context.Context) ([]*model.Timeslot, error)
	statsFn        func(ctx context.Context, now time.Time) (*model.Stats, error)
}

func (f *fakeBookingStore) BookTimeslot(ctx context.Context, apptID, userID, timeslotID string, now time.Time) (*model.Appointment, error) {
	return f.bookFn(ctx, apptID, userID, timeslotID, now)
}

func (f *fakeBookingStore) CancelAppointment(ctx context.Context, appointmentID, requesterID string, admin bool, now time.Time) error {
	return f.cancelFn(ctx, appointmentID, requesterID, admin, now)
}

func (f *fakeBookingStore) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	return f.getApptFn(ctx, id)
}

func (f *fakeBookingStore) ListUserAppointments(ctx context.Context, userID string) ([]*model.Appointment, error) {
	return f.listUserFn(ctx, userID)
}

func (f *fakeBookingStore) ListAllAppointments(ctx context.Context) ([]*model.Appointment, error) {
	return f.listAllApptFn(ctx)
}

func (f *fakeBookingStore) CreateTimeslot(ctx context.Context, slot *model.Timeslot) error {
	return f.createSlotFn(ctx, slot)
}

func (f *fakeBookingStore) GetTimeslot(ctx context.Context, id string) (*model.Timeslot, error) {
	return f.getSlotFn(ctx, id)
}

func (f *fakeBookingStore) DeleteTimeslot(ctx context.Context, id string) error {
	return f.deleteSlotFn(ctx, id)
}

func (f *fakeBookingStore) ListOpenTimeslots(ctx context.Context, now time.Time) ([]*model.Timeslot, error) {
	return f.listOpenFn(ctx, now)
}

func (f *fakeBookingStore) ListAllTimeslots(ctx context.Context) ([]*model.Timeslot, error) {
	return f.listAllSlotsFn(ctx)
}

func (f *fakeBookingStore) StatsSnapshot(ctx context.Context, now time.Time) (*model.Stats, error) {
	return f.statsFn(ctx, now)
}

// fakeListingCache implements ListingCache in memory.
type fakeListingCache struct {
	slots       []*model.Timeslot
	populated   bool
	invalidated int
}

func (f *fakeListingCache) GetOpenTimeslots(ctx context.Context) ([]*model.Timeslot, error) {
	if !f.populated {
		return nil, cache.ErrCacheMiss
	}
	return f.slots, nil
}

func (f *fakeListingCache) SetOpenTimeslots(ctx context.Context, slots []*model.Timeslot) error {
	f.slots = slots
	f.populated = true
	return nil
}

func (f *fakeListingCache) InvalidateOpenTimeslots(ctx context.Context) error {
	f.slots = nil
	f.populated = false
	f.invalidated++
	return nil
}

func TestBook_Success(t *testing.T) {
	t.Parallel()

	store := &fakeBookingStore{
		bookFn: func(ctx context.Context, apptID, userID, timeslotID string, now time.Time) (*model.Appointment, error) {
			if apptID == "" {
				t.Error("service should generate an appointment ID")
			}
			return &model.Appointment{ID: apptID, UserID: userID, TimeslotID: timeslotID}, nil
		},
	}
	listings := &fakeListingCache{populated: true}
	rec := metrics.NewInMemory()
	svc := NewBookingService(store, listings, 0, rec)

	appt, err := svc.Book(context.Background(), "user-1", "slot-1")
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if appt.UserID != "user-1" || appt.TimeslotID != "slot-1" {
		t.Errorf("unexpected appointment: %+v", appt)
	}
	if listings.invalidated != 1 {
		t.Error("listing cache should be invalidated after booking")
	}
	if rec.Snapshot().BookingsCreated != 1 {
		t.Error("booking counter not incremented")
	}
}

func TestBook_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		storeErr error
		want     error
	}{
		{"missing slot", repository.ErrTimeslotNotFound, ErrNotFound},
		{"taken slot", repository.ErrTimeslotUnavailable, ErrUnavailable},
		{"lost race", repository.ErrBookingConflict, ErrConflict},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &fakeBookingStore{
				bookFn: func(ctx context.Context, apptID, userID, timeslotID string, now time.Time) (*model.Appointment, error) {
					return nil, tt.storeErr
				},
			}
			listings := &fakeListingCache{}
			svc := NewBookingService(store, listings, 0, nil)

			_, err := svc.Book(context.Background(), "user-1", "slot-1")
			if !errors.Is(err, tt.want) {
				t.Errorf("Book() error = %v, want %v", err, tt.want)
			}
			if listings.invalidated != 0 {
				t.Error("cache must not be invalidated on failure")
			}
		})
	}
}

func TestBook_RetriesTransientOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	store := &fakeBookingStore{
		bookFn: func(ctx context.Context, apptID, userID, timeslotID string, now time.Time) (*model.Appointment, error) {
			calls++
			if calls == 1 {
				return nil, repository.ErrTransient
			}
			return &model.Appointment{ID: apptID}, nil
		},
	}
	rec := metrics.NewInMemory()
	svc := NewBookingService(store, nil, 0, rec)

	if _, err := svc.Book(context.Background(), "user-1", "slot-1"); err != nil {
		t.Fatalf("Book should succeed on retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 store calls, got %d", calls)
	}
	if rec.Snapshot().TransientRetries != 1 {
		t.Error("retry counter not incremented")
	}
}

func TestBook_TransientExhausted(t *testing.T) {
	t.Parallel()

	calls := 0
	store := &fakeBookingStore{
		bookFn: func(ctx context.Context, apptID, userID, timeslotID string, now time.Time) (*model.Appointment, error) {
			calls++
			return nil, repository.ErrTransient
		},
	}
	svc := NewBookingService(store, nil, 0, nil)

	_, err := svc.Book(context.Background(), "user-1", "slot-1")
	if !errors.Is(err, ErrTransient) {
		t.Errorf("expected ErrTransient after retry, got: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", calls)
	}
}

func TestCancel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		storeErr error
		want     error
	}{
		{"success", nil, nil},
		{"missing", repository.ErrAppointmentNotFound, ErrNotFound},
		{"not owner", repository.ErrNotOwner, ErrForbidden},
		{"already over", repository.ErrPastTimeslot, ErrPastAppointment},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotAdmin bool
			store := &fakeBookingStore{
				cancelFn: func(ctx context.Context, appointmentID, requesterID string, admin bool, now time.Time) error {
					gotAdmin = admin
					return tt.storeErr
				},
			}
			svc := NewBookingService(store, nil, 0, nil)

			requester := model.Principal{UserID: "user-1", IsAdmin: true}
			err := svc.Cancel(context.Background(), requester, "appt-1")
			if !errors.Is(err, tt.want) {
				t.Errorf("Cancel() error = %v, want %v", err, tt.want)
			}
			if !gotAdmin {
				t.Error("admin flag should be passed through")
			}
		})
	}
}

func TestGetAppointment_HidesOtherUsers(t *testing.T) {
	t.Parallel()

	appt := &model.Appointment{ID: "appt-1", UserID: "owner"}
	store := &fakeBookingStore{
		getApptFn: func(ctx context.Context, id string) (*model.Appointment, error) {
			return appt, nil
		},
	}
	svc := NewBookingService(store, nil, 0, nil)

	tests := []struct {
		name      string
		requester model.Principal
		wantErr   error
	}{
		{"owner sees it", model.Principal{UserID: "owner"}, nil},
		{"admin sees it", model.Principal{UserID: "someone", IsAdmin: true}, nil},
		{"stranger gets not found", model.Principal{UserID: "stranger"}, ErrNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := svc.GetAppointment(context.Background(), tt.requester, "appt-1")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("GetAppointment() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got.ID != "appt-1" {
				t.Errorf("unexpected appointment: %+v", got)
			}
		})
	}
}

func TestCreateTimeslot(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		storeErr error
		wantErr  error
	}{
		{"valid", base, base.Add(time.Hour), nil, nil},
		{"zero length", base, base, nil, ErrInvalidRange},
		{"inverted", base.Add(time.Hour), base, nil, ErrInvalidRange},
		{"overlap", base, base.Add(time.Hour), repository.ErrTimeslotOverlap, ErrOverlap},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var created *model.Timeslot
			store := &fakeBookingStore{
				createSlotFn: func(ctx context.Context, slot *model.Timeslot) error {
					created = slot
					return tt.storeErr
				},
			}
			svc := NewBookingService(store, nil, 0, nil)

			slot, err := svc.CreateTimeslot(context.Background(), "admin-1", tt.start, tt.end, true)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateTimeslot() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if slot.ID == "" {
				t.Error("slot should get a generated ID")
			}
			if created.CreatedBy == nil || *created.CreatedBy != "admin-1" {
				t.Error("creator should be recorded")
			}
			if !slot.Available {
				t.Error("availability flag lost")
			}
		})
	}
}

func TestCreateTimeslot_InvalidRangeSkipsStore(t *testing.T) {
	t.Parallel()

	store := &fakeBookingStore{
		createSlotFn: func(ctx context.Context, slot *model.Timeslot) error {
			t.Error("store must not be called for an invalid range")
			return nil
		},
	}
	svc := NewBookingService(store, nil, 0, nil)

	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	if _, err := svc.CreateTimeslot(context.Background(), "admin-1", base, base, true); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got: %v", err)
	}
}

func TestDeleteTimeslot_ActiveBookings(t *testing.T) {
	t.Parallel()

	store := &fakeBookingStore{
		deleteSlotFn: func(ctx context.Context, id string) error {
			return repository.ErrActiveBookings
		},
	}
	svc := NewBookingService(store, nil, 0, nil)

	if err := svc.DeleteTimeslot(context.Background(), "slot-1"); !errors.Is(err, ErrHasActiveBookings) {
		t.Errorf("expected ErrHasActiveBookings, got: %v", err)
	}
}

func TestListOpenTimeslots_CacheFlow(t *testing.T) {
	t.Parallel()

	dbSlots := []*model.Timeslot{{ID: "slot-1", Available: true}}
	dbCalls := 0
	store := &fakeBookingStore{
		listOpenFn: func(ctx context.Context, now time.Time) ([]*model.Timeslot, error) {
			dbCalls++
			return dbSlots, nil
		},
	}
	listings := &fakeListingCache{}
	rec := metrics.NewInMemory()
	svc := NewBookingService(store, listings, 0, rec)

	// Miss: falls through to the store and backfills the cache.
	got, err := svc.ListOpenTimeslots(context.Background())
	if err != nil {
		t.Fatalf("first listing failed: %v", err)
	}
	if len(got) != 1 || dbCalls != 1 {
		t.Fatalf("expected store hit, got %d slots after %d store calls", len(got), dbCalls)
	}

	// Hit: served from cache without touching the store.
	if _, err := svc.ListOpenTimeslots(context.Background()); err != nil {
		t.Fatalf("second listing failed: %v", err)
	}
	if dbCalls != 1 {
		t.Errorf("expected cached listing, store called %d times", dbCalls)
	}

	snap := rec.Snapshot()
	if snap.ListingCacheMisses != 1 || snap.ListingCacheHits != 1 {
		t.Errorf("cache counters off: hits=%d misses=%d", snap.ListingCacheHits, snap.ListingCacheMisses)
	}
}

func TestListOpenTimeslots_NoCache(t *testing.T) {
	t.Parallel()

	store := &fakeBookingStore{
		listOpenFn: func(ctx context.Context, now time.Time) ([]*model.Timeslot, error) {
			return nil, nil
		},
	}
	svc := NewBookingService(store, nil, 0, nil)

	if _, err := svc.ListOpenTimeslots(context.Background()); err != nil {
		t.Fatalf("listing without cache failed: %v", err)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	store := &fakeBookingStore{
		statsFn: func(ctx context.Context, now time.Time) (*model.Stats, error) {
			return &model.Stats{TotalUsers: 3, TotalTimeslots: 5, TotalAppointments: 2, UpcomingAppointments: 1}, nil
		},
	}
	svc := NewBookingService(store, nil, 0, nil)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalUsers != 3 || stats.UpcomingAppointments != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
