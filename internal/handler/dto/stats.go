package dto

import "github.com/slotbook/slotbook/internal/model"

// StatsResponse represents the admin dashboard counters.
type StatsResponse struct {
	TotalUsers           int64 `json:"total_users"`
	TotalAppointments    int64 `json:"total_appointments"`
	TotalTimeslots       int64 `json:"total_timeslots"`
	UpcomingAppointments int64 `json:"upcoming_appointments"`
}

// ToStatsResponse converts a Stats model to StatsResponse.
func ToStatsResponse(s *model.Stats) *StatsResponse {
	return &StatsResponse{
		TotalUsers:           s.TotalUsers,
		TotalAppointments:    s.TotalAppointments,
		TotalTimeslots:       s.TotalTimeslots,
		UpcomingAppointments: s.UpcomingAppointments,
	}
}
