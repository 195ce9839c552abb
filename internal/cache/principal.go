package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/slotbook/slotbook/internal/model"
)

const (
	// principalCachePrefix is the Redis key prefix for request principals.
	principalCachePrefix = "principal:"
	// principalCacheTTL bounds how stale a cached admin flag can be.
	principalCacheTTL = 60 * time.Second
)

// cachedPrincipal is the Redis representation of a principal.
type cachedPrincipal struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// GetPrincipal retrieves a cached principal by user ID.
// Returns nil on a cache miss.
func (c *Cache) GetPrincipal(ctx context.Context, userID string) (*model.Principal, error) {
	key := principalCachePrefix + userID

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var cached cachedPrincipal
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &model.Principal{
		UserID:  cached.UserID,
		Email:   cached.Email,
		IsAdmin: cached.IsAdmin,
	}, nil
}

// SetPrincipal caches a principal under its user ID.
func (c *Cache) SetPrincipal(ctx context.Context, p *model.Principal) error {
	key := principalCachePrefix + p.UserID

	data, err := json.Marshal(cachedPrincipal{
		UserID:  p.UserID,
		Email:   p.Email,
		IsAdmin: p.IsAdmin,
	})
	if err != nil {
		return fmt.Errorf("marshal principal: %w", err)
	}

	return c.client.Set(ctx, key, data, principalCacheTTL).Err()
}

// DeletePrincipal removes a cached principal.
// Used when a user record changes.
func (c *Cache) DeletePrincipal(ctx context.Context, userID string) error {
	key := principalCachePrefix + userID
	return c.client.Del(ctx, key).Err()
}
