package model

import "time"

// Timeslot is a bookable time interval. Availability is authoritative
// in the store: true iff no active appointment references the slot.
type Timeslot struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Available bool      `json:"available"`
	CreatedBy *string   `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsPast reports whether the slot has already ended.
func (t *Timeslot) IsPast(now time.Time) bool {
	return t.EndTime.Before(now)
}

// Overlaps reports whether the slot intersects the half-open interval
// [start, end). Touching endpoints do not overlap.
func (t *Timeslot) Overlaps(start, end time.Time) bool {
	return t.StartTime.Before(end) && t.EndTime.After(start)
}
