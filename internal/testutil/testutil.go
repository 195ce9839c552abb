// Package testutil provides shared helpers for integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotbook/slotbook/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// TruncateBookingTables wipes all booking data between tests.
// Schema stays in place; migrations only need to run once per process.
func TruncateBookingTables(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, "TRUNCATE appointments, timeslots, users CASCADE")
	if err != nil {
		return fmt.Errorf("truncate booking tables: %w", err)
	}
	return nil
}

// UniqueID returns a prefixed unique identifier for test entities.
func UniqueID(prefix string) string {
	return prefix + "-" + uuid.New().String()
}

// UniqueEmail returns a unique email address for test users.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@example.com", prefix, uuid.New().String()[:8])
}

// NewTestUser builds a user row ready for insertion.
func NewTestUser(t testing.TB, email string) *model.User {
	t.Helper()
	return &model.User{
		ID:           UniqueID("user"),
		Email:        email,
		Name:         "Test User",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$dGVzdHNhbHQwMDAwMDAwMA$c2VudGluZWxoYXNoc2VudGluZWxoYXNoMDAwMDAw",
		CreatedAt:    time.Now().UTC(),
	}
}

// NewTestTimeslot builds a timeslot row ready for insertion.
func NewTestTimeslot(t testing.TB, start, end time.Time) *model.Timeslot {
	t.Helper()
	return &model.Timeslot{
		ID:        UniqueID("slot"),
		StartTime: start,
		EndTime:   end,
		Available: true,
		CreatedAt: time.Now().UTC(),
	}
}
