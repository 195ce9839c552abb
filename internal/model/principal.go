package model

// Principal is the authenticated identity attached to a request.
// It is re-derived from the persisted user record on every request, so
// the admin flag is never trusted from token claims.
type Principal struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// Owns reports whether the principal owns the given appointment.
func (p *Principal) Owns(a *Appointment) bool {
	return a != nil && a.UserID == p.UserID
}
