package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/slotbook/slotbook/internal/auth"
	"github.com/slotbook/slotbook/internal/handler/dto"
	"github.com/slotbook/slotbook/internal/service"
)

// AppointmentHandler handles the user-facing booking endpoints.
type AppointmentHandler struct {
	bookings *service.BookingService
	logger   *slog.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(bookings *service.BookingService, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		bookings: bookings,
		logger:   logger,
	}
}

// Create handles POST /appointments.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipalFromContext(r.Context())

	var req dto.CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.TimeslotID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TIMESLOT_ID", "timeslot_id is required")
		return
	}

	appt, err := h.bookings.Book(r.Context(), principal.UserID, req.TimeslotID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("appointment_created",
		"appointment_id", appt.ID,
		"user_id", principal.UserID,
		"timeslot_id", req.TimeslotID,
	)

	writeJSON(w, http.StatusCreated, dto.ToAppointmentResponse(appt))
}

// List handles GET /appointments. Returns the requester's own
// appointments, newest first.
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipalFromContext(r.Context())

	appts, err := h.bookings.ListMyAppointments(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToAppointmentListResponse(appts))
}

// Get handles GET /appointments/{id}.
func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipalFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Appointment ID is required")
		return
	}

	appt, err := h.bookings.GetAppointment(r.Context(), *principal, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToAppointmentResponse(appt))
}

// Delete handles DELETE /appointments/{id}.
func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipalFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Appointment ID is required")
		return
	}

	if err := h.bookings.Cancel(r.Context(), *principal, id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("appointment_cancelled",
		"appointment_id", id,
		"user_id", principal.UserID,
	)

	w.WriteHeader(http.StatusNoContent)
}
