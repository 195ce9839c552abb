package dto

import (
	"time"

	"github.com/slotbook/slotbook/internal/model"
)

// CreateAppointmentRequest represents the request body for booking.
type CreateAppointmentRequest struct {
	TimeslotID string `json:"timeslot_id"`
}

// AppointmentResponse represents an appointment in API responses.
type AppointmentResponse struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	TimeslotID string            `json:"timeslot_id"`
	CreatedAt  time.Time         `json:"created_at"`
	Timeslot   *TimeslotResponse `json:"timeslot,omitempty"`
}

// AppointmentListResponse wraps an appointment listing.
type AppointmentListResponse struct {
	Data []AppointmentResponse `json:"data"`
}

// ToAppointmentResponse converts an Appointment model to its DTO.
func ToAppointmentResponse(a *model.Appointment) *AppointmentResponse {
	resp := &AppointmentResponse{
		ID:         a.ID,
		UserID:     a.UserID,
		TimeslotID: a.TimeslotID,
		CreatedAt:  a.CreatedAt,
	}
	if a.Timeslot != nil {
		resp.Timeslot = ToTimeslotResponse(a.Timeslot)
	}
	return resp
}

// ToAppointmentListResponse converts a slice of Appointment models.
func ToAppointmentListResponse(appts []*model.Appointment) *AppointmentListResponse {
	responses := make([]AppointmentResponse, len(appts))
	for i, a := range appts {
		responses[i] = *ToAppointmentResponse(a)
	}
	return &AppointmentListResponse{Data: responses}
}
