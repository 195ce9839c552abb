package model

import "time"

// Appointment links one user to one timeslot. It holds non-owning
// references; existence of both sides is enforced by the store.
type Appointment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	TimeslotID string    `json:"timeslot_id"`
	CreatedAt  time.Time `json:"created_at"`

	// Timeslot is populated on reads that join the slot row.
	Timeslot *Timeslot `json:"timeslot,omitempty"`
}
