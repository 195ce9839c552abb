package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/slotbook/slotbook/internal/auth"
	"github.com/slotbook/slotbook/internal/handler/dto"
	"github.com/slotbook/slotbook/internal/service"
)

// AdminHandler provides the admin-only dashboard and listing endpoints.
// The RequireAdmin middleware guards every route that reaches it.
type AdminHandler struct {
	bookings *service.BookingService
	users    *service.UserService
	logger   *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(bookings *service.BookingService, users *service.UserService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		bookings: bookings,
		users:    users,
		logger:   logger,
	}
}

// Dashboard handles GET /admin/dashboard.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.bookings.Stats(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToStatsResponse(stats))
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserListResponse(users))
}

// ListAppointments handles GET /admin/appointments.
func (h *AdminHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.bookings.ListAllAppointments(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToAppointmentListResponse(appts))
}

// ListTimeslots handles GET /admin/timeslots.
func (h *AdminHandler) ListTimeslots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.bookings.ListAllTimeslots(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTimeslotListResponse(slots))
}

// DeleteAppointment handles DELETE /admin/appointments/{id}.
// Revokes any user's appointment, past ones included.
func (h *AdminHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
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

	h.logger.Info("appointment_revoked",
		"appointment_id", id,
		"admin_id", principal.UserID,
	)

	w.WriteHeader(http.StatusNoContent)
}
