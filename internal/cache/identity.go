package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"fashion-auth/internal/domain"
	"fashion-auth/internal/storage"
	"fashion-auth/pkg/logger"
)

// MaxAge is how long a cached identity stays valid
const MaxAge = 24 * time.Hour

// IdentityCache persists the resolved identity for session continuity across
// page loads. It is independent of the remote session: either side can expire
// without the other.
type IdentityCache struct {
	store storage.Store
	now   func() time.Time
	log   *logger.Logger
}

// New creates an identity cache over the given store
func New(store storage.Store, log *logger.Logger) *IdentityCache {
	return &IdentityCache{store: store, now: time.Now, log: log}
}

// NewWithClock creates a cache with an injected clock, for boundary tests
func NewWithClock(store storage.Store, now func() time.Time, log *logger.Logger) *IdentityCache {
	return &IdentityCache{store: store, now: now, log: log}
}

// Save writes the identity and the current timestamp
func (c *IdentityCache) Save(ctx context.Context, identity *domain.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}

	if err := c.store.Set(ctx, storage.KeyUserData, string(data)); err != nil {
		return fmt.Errorf("failed to store identity: %w", err)
	}

	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)
	if err := c.store.Set(ctx, storage.KeyAuthTimestamp, timestamp); err != nil {
		return fmt.Errorf("failed to store auth timestamp: %w", err)
	}

	return nil
}

// Load returns the cached identity, or nil when absent, unreadable, or older
// than MaxAge. Expired and corrupt entries are deleted on the way out.
func (c *IdentityCache) Load(ctx context.Context) *domain.Identity {
	data, err := c.store.Get(ctx, storage.KeyUserData)
	if err != nil {
		return nil
	}

	rawTimestamp, err := c.store.Get(ctx, storage.KeyAuthTimestamp)
	if err != nil {
		return nil
	}

	storedAt, err := strconv.ParseInt(rawTimestamp, 10, 64)
	if err != nil {
		c.log.Warn("Corrupt auth timestamp, clearing cached identity")
		c.Clear(ctx)
		return nil
	}

	age := c.now().Sub(time.UnixMilli(storedAt))
	if age > MaxAge {
		c.log.WithField("age", age.String()).Debug("Cached identity expired")
		c.Clear(ctx)
		return nil
	}

	var identity domain.Identity
	if err := json.Unmarshal([]byte(data), &identity); err != nil {
		c.log.WithError(err).Warn("Corrupt cached identity, clearing")
		c.Clear(ctx)
		return nil
	}

	return &identity
}

// Clear removes the cached identity unconditionally
func (c *IdentityCache) Clear(ctx context.Context) {
	_ = c.store.Delete(ctx, storage.KeyUserData)
	_ = c.store.Delete(ctx, storage.KeyAuthTimestamp)
}
