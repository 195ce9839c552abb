package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/slotbook/slotbook/internal/auth"
	"github.com/slotbook/slotbook/internal/handler/dto"
	"github.com/slotbook/slotbook/internal/model"
	"github.com/slotbook/slotbook/internal/service"
)

// TimeslotHandler handles the calendar endpoints.
type TimeslotHandler struct {
	bookings *service.BookingService
	logger   *slog.Logger
}

// NewTimeslotHandler creates a new TimeslotHandler.
func NewTimeslotHandler(bookings *service.BookingService, logger *slog.Logger) *TimeslotHandler {
	return &TimeslotHandler{
		bookings: bookings,
		logger:   logger,
	}
}

// List handles GET /calendar/timeslots. Regular users see bookable
// future slots; admins see the full calendar.
func (h *TimeslotHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipalFromContext(r.Context())

	var (
		slots []*model.Timeslot
		err   error
	)
	if principal.IsAdmin {
		slots, err = h.bookings.ListAllTimeslots(r.Context())
	} else {
		slots, err = h.bookings.ListOpenTimeslots(r.Context())
	}
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTimeslotListResponse(slots))
}

// Create handles POST /calendar/timeslots. Admin only.
func (h *TimeslotHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipalFromContext(r.Context())

	var req dto.CreateTimeslotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		writeError(w, http.StatusBadRequest, "MISSING_TIMES", "start_time and end_time are required")
		return
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	slot, err := h.bookings.CreateTimeslot(r.Context(), principal.UserID, req.StartTime, req.EndTime, available)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("timeslot_created",
		"timeslot_id", slot.ID,
		"start_time", slot.StartTime,
		"end_time", slot.EndTime,
	)

	writeJSON(w, http.StatusCreated, dto.ToTimeslotResponse(slot))
}

// Delete handles DELETE /calendar/timeslots/{id}. Admin only.
func (h *TimeslotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Timeslot ID is required")
		return
	}

	if err := h.bookings.DeleteTimeslot(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("timeslot_deleted", "timeslot_id", id)

	w.WriteHeader(http.StatusNoContent)
}
