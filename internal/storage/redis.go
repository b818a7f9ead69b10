package storage

import (
	"context"
	"time"

	"fashion-auth/pkg/redis"
)

// Redis is a Store backed by a shared Redis instance. Keys are namespaced per
// client context so one deployment serves many browser sessions.
type Redis struct {
	client    *redis.Client
	contextID string
}

// NewRedis creates a Redis-backed store for the given client context
func NewRedis(client *redis.Client, contextID string) *Redis {
	return &Redis{client: client, contextID: contextID}
}

// Get retrieves a value, returning ErrNotFound when the key is absent
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.client.KeyBuilder.KeyAuthState(r.contextID, key))
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set stores a value with the TTL matching the key's lifecycle
func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.client.KeyBuilder.KeyAuthState(r.contextID, key), value, ttlFor(key))
}

// Delete removes a key. Deleting an absent key is not an error.
func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Delete(ctx, r.client.KeyBuilder.KeyAuthState(r.contextID, key))
}

// ttlFor maps persisted keys to their retention. Unknown keys get the
// identity TTL as the conservative default.
func ttlFor(key string) time.Duration {
	switch key {
	case KeyOAuthState:
		return redis.TTLOAuthState
	case KeySessionToken, KeySessionCreatedAt:
		return redis.TTLSessionToken
	default:
		return redis.TTLIdentity
	}
}
