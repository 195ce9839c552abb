package model

// Stats is the admin dashboard snapshot. All counts come from a single
// snapshot-consistent read.
type Stats struct {
	TotalUsers           int64 `json:"total_users"`
	TotalAppointments    int64 `json:"total_appointments"`
	TotalTimeslots       int64 `json:"total_timeslots"`
	UpcomingAppointments int64 `json:"upcoming_appointments"`
}
