// Package model defines domain entities for the application.
package model

import "time"

// User represents a registered account.
// Identity (email) is immutable once created; the password hash is an
// argon2id PHC string and never serialized.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}
