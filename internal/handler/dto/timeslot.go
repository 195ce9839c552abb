package dto

import (
	"time"

	"github.com/slotbook/slotbook/internal/model"
)

// CreateTimeslotRequest represents the request body for creating a slot.
// Times are RFC 3339.
type CreateTimeslotRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Available *bool     `json:"available,omitempty"`
}

// TimeslotResponse represents a timeslot in API responses.
type TimeslotResponse struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"created_at"`
}

// TimeslotListResponse wraps a slot listing.
type TimeslotListResponse struct {
	Data []TimeslotResponse `json:"data"`
}

// ToTimeslotResponse converts a Timeslot model to TimeslotResponse.
func ToTimeslotResponse(t *model.Timeslot) *TimeslotResponse {
	return &TimeslotResponse{
		ID:        t.ID,
		StartTime: t.StartTime,
		EndTime:   t.EndTime,
		Available: t.Available,
		CreatedAt: t.CreatedAt,
	}
}

// ToTimeslotListResponse converts a slice of Timeslot models.
func ToTimeslotListResponse(slots []*model.Timeslot) *TimeslotListResponse {
	responses := make([]TimeslotResponse, len(slots))
	for i, t := range slots {
		responses[i] = *ToTimeslotResponse(t)
	}
	return &TimeslotListResponse{Data: responses}
}
