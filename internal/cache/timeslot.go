package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/slotbook/slotbook/internal/model"
)

// Cache keys and TTLs for the public calendar.
const (
	openTimeslotsKey = "timeslots:open"

	// OpenTimeslotsTTL is the TTL for the cached open-slot listing.
	// Short on purpose: the listing is a hint, bookings are decided
	// against the database.
	OpenTimeslotsTTL = 30 * time.Second
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetOpenTimeslots retrieves the cached open-slot listing.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetOpenTimeslots(ctx context.Context) ([]*model.Timeslot, error) {
	data, err := c.client.Get(ctx, openTimeslotsKey).Bytes()
	if err != nil {
		return nil, ErrCacheMiss
	}

	var slots []*model.Timeslot
	if err := json.Unmarshal(data, &slots); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, ErrCacheMiss
	}

	return slots, nil
}

// SetOpenTimeslots stores the open-slot listing.
func (c *Cache) SetOpenTimeslots(ctx context.Context, slots []*model.Timeslot) error {
	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("marshal timeslots: %w", err)
	}

	if err := c.client.Set(ctx, openTimeslotsKey, data, OpenTimeslotsTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache timeslots: %w", err)
	}

	return nil
}

// InvalidateOpenTimeslots drops the cached listing. Called after any
// write that changes slot availability.
func (c *Cache) InvalidateOpenTimeslots(ctx context.Context) error {
	if err := c.client.Del(ctx, openTimeslotsKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate timeslot cache: %w", err)
	}
	return nil
}
