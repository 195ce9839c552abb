package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slotbook/slotbook/internal/auth"
	"github.com/slotbook/slotbook/internal/handler/dto"
	"github.com/slotbook/slotbook/internal/model"
	"github.com/slotbook/slotbook/internal/repository"
	"github.com/slotbook/slotbook/internal/service"
)

// memStore is an in-memory BookingStore mirroring the reservation
// semantics closely enough for handler tests.
type memStore struct {
	mu           sync.Mutex
	timeslots    map[string]*model.Timeslot
	appointments map[string]*model.Appointment
}

func newMemStore() *memStore {
	return &memStore{
		timeslots:    make(map[string]*model.Timeslot),
		appointments: make(map[string]*model.Appointment),
	}
}

func (m *memStore) BookTimeslot(ctx context.Context, apptID, userID, timeslotID string, now time.Time) (*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.timeslots[timeslotID]
	if !ok {
		return nil, repository.ErrTimeslotNotFound
	}
	if !slot.Available || slot.IsPast(now) {
		return nil, repository.ErrTimeslotUnavailable
	}

	slot.Available = false
	appt := &model.Appointment{
		ID:         apptID,
		UserID:     userID,
		TimeslotID: timeslotID,
		CreatedAt:  now,
		Timeslot:   slot,
	}
	m.appointments[apptID] = appt
	return appt, nil
}

func (m *memStore) CancelAppointment(ctx context.Context, appointmentID, requesterID string, admin bool, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	appt, ok := m.appointments[appointmentID]
	if !ok {
		return repository.ErrAppointmentNotFound
	}
	if !admin {
		if appt.UserID != requesterID {
			return repository.ErrNotOwner
		}
		if slot, ok := m.timeslots[appt.TimeslotID]; ok && slot.IsPast(now) {
			return repository.ErrPastTimeslot
		}
	}

	delete(m.appointments, appointmentID)
	if slot, ok := m.timeslots[appt.TimeslotID]; ok {
		slot.Available = true
	}
	return nil
}

func (m *memStore) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	appt, ok := m.appointments[id]
	if !ok {
		return nil, repository.ErrAppointmentNotFound
	}
	return appt, nil
}

func (m *memStore) ListUserAppointments(ctx context.Context, userID string) ([]*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var appts []*model.Appointment
	for _, a := range m.appointments {
		if a.UserID == userID {
			appts = append(appts, a)
		}
	}
	return appts, nil
}

func (m *memStore) ListAllAppointments(ctx context.Context) ([]*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var appts []*model.Appointment
	for _, a := range m.appointments {
		appts = append(appts, a)
	}
	return appts, nil
}

func (m *memStore) CreateTimeslot(ctx context.Context, slot *model.Timeslot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.timeslots {
		if existing.Overlaps(slot.StartTime, slot.EndTime) {
			return repository.ErrTimeslotOverlap
		}
	}
	m.timeslots[slot.ID] = slot
	return nil
}

func (m *memStore) GetTimeslot(ctx context.Context, id string) (*model.Timeslot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.timeslots[id]
	if !ok {
		return nil, repository.ErrTimeslotNotFound
	}
	return slot, nil
}

func (m *memStore) DeleteTimeslot(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.timeslots[id]; !ok {
		return repository.ErrTimeslotNotFound
	}
	for _, a := range m.appointments {
		if a.TimeslotID == id {
			return repository.ErrActiveBookings
		}
	}
	delete(m.timeslots, id)
	return nil
}

func (m *memStore) ListOpenTimeslots(ctx context.Context, now time.Time) ([]*model.Timeslot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var slots []*model.Timeslot
	for _, s := range m.timeslots {
		if s.Available && !s.IsPast(now) {
			slots = append(slots, s)
		}
	}
	return slots, nil
}

func (m *memStore) ListAllTimeslots(ctx context.Context) ([]*model.Timeslot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var slots []*model.Timeslot
	for _, s := range m.timeslots {
		slots = append(slots, s)
	}
	return slots, nil
}

func (m *memStore) StatsSnapshot(ctx context.Context, now time.Time) (*model.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return &model.Stats{
		TotalTimeslots:    int64(len(m.timeslots)),
		TotalAppointments: int64(len(m.appointments)),
	}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newBookingRouter wires the appointment routes onto a chi router with
// the principal injected directly, standing in for the auth middleware.
func newBookingRouter(store *memStore, principal *model.Principal) http.Handler {
	bookings := service.NewBookingService(store, nil, 0, nil)
	h := NewAppointmentHandler(bookings, discardLogger())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := auth.ContextWithPrincipal(req.Context(), principal)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Get("/appointments", h.List)
	r.Post("/appointments", h.Create)
	r.Get("/appointments/{id}", h.Get)
	r.Delete("/appointments/{id}", h.Delete)
	return r
}

func futureSlot(id string) *model.Timeslot {
	start := time.Now().UTC().Add(24 * time.Hour)
	return &model.Timeslot{
		ID:        id,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Available: true,
		CreatedAt: time.Now().UTC(),
	}
}

func TestAppointmentHandler_Create(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.timeslots["slot-1"] = futureSlot("slot-1")
	router := newBookingRouter(store, &model.Principal{UserID: "user-1"})

	body, _ := json.Marshal(dto.CreateAppointmentRequest{TimeslotID: "slot-1"})
	req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", rec.Code, rec.Body.String())
	}

	var resp dto.AppointmentResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UserID != "user-1" || resp.TimeslotID != "slot-1" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Timeslot == nil || resp.Timeslot.Available {
		t.Error("booked slot should be embedded and unavailable")
	}
}

func TestAppointmentHandler_Create_Errors(t *testing.T) {
	t.Parallel()

	pastSlot := futureSlot("slot-past")
	pastSlot.StartTime = time.Now().UTC().Add(-2 * time.Hour)
	pastSlot.EndTime = time.Now().UTC().Add(-time.Hour)

	bookedSlot := futureSlot("slot-booked")
	bookedSlot.Available = false

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"invalid json", "{", http.StatusBadRequest, "INVALID_JSON"},
		{"missing slot id", `{}`, http.StatusBadRequest, "MISSING_TIMESLOT_ID"},
		{"unknown slot", `{"timeslot_id":"nope"}`, http.StatusNotFound, "NOT_FOUND"},
		{"past slot", `{"timeslot_id":"slot-past"}`, http.StatusBadRequest, "UNAVAILABLE"},
		{"booked slot", `{"timeslot_id":"slot-booked"}`, http.StatusBadRequest, "UNAVAILABLE"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newMemStore()
			store.timeslots["slot-past"] = pastSlot
			store.timeslots["slot-booked"] = bookedSlot
			router := newBookingRouter(store, &model.Principal{UserID: "user-1"})

			req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d, body: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}

			var resp dto.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestAppointmentHandler_Delete(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.timeslots["slot-1"] = futureSlot("slot-1")
	slot := store.timeslots["slot-1"]
	slot.Available = false
	store.appointments["appt-1"] = &model.Appointment{
		ID:         "appt-1",
		UserID:     "user-1",
		TimeslotID: "slot-1",
		CreatedAt:  time.Now().UTC(),
	}

	router := newBookingRouter(store, &model.Principal{UserID: "user-1"})

	req := httptest.NewRequest(http.MethodDelete, "/appointments/appt-1", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204, body: %s", rec.Code, rec.Body.String())
	}
	if !slot.Available {
		t.Error("cancelling should restore slot availability")
	}
}

func TestAppointmentHandler_Delete_Forbidden(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.appointments["appt-1"] = &model.Appointment{
		ID:     "appt-1",
		UserID: "owner",
	}

	router := newBookingRouter(store, &model.Principal{UserID: "stranger"})

	req := httptest.NewRequest(http.MethodDelete, "/appointments/appt-1", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestAppointmentHandler_Get_OtherUsersHidden(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.appointments["appt-1"] = &model.Appointment{
		ID:     "appt-1",
		UserID: "owner",
	}

	router := newBookingRouter(store, &model.Principal{UserID: "stranger"})

	req := httptest.NewRequest(http.MethodGet, "/appointments/appt-1", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAppointmentHandler_List(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.appointments["mine"] = &model.Appointment{ID: "mine", UserID: "user-1"}
	store.appointments["theirs"] = &model.Appointment{ID: "theirs", UserID: "user-2"}

	router := newBookingRouter(store, &model.Principal{UserID: "user-1"})

	req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp dto.AppointmentListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].ID != "mine" {
		t.Errorf("listing should contain only own appointments: %+v", resp.Data)
	}
}
