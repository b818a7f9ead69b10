package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Client) {
	// Create a miniredis server
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	// Create client with test redis
	client, err := NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func TestNewClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	tests := []struct {
		name        string
		url         string
		environment string
		expectError bool
	}{
		{
			name:        "Valid Redis URL",
			url:         "redis://" + mr.Addr(),
			environment: "test",
			expectError: false,
		},
		{
			name:        "Invalid URL",
			url:         "invalid://url",
			environment: "test",
			expectError: true,
		},
		{
			name:        "Empty URL",
			url:         "",
			environment: "test",
			expectError: true,
		},
		{
			name:        "Unreachable server",
			url:         "redis://127.0.0.1:1",
			environment: "test",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.url, tt.environment, zap.NewNop())

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, client)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, client)
				assert.NotNil(t, client.KeyBuilder)
				client.Close()
			}
		})
	}
}

func TestClient_Get(t *testing.T) {
	mr, client := setupTestRedis(t)

	ctx := context.Background()

	mr.Set("auth:client-1:session_token", "tok-123")

	value, err := client.Get(ctx, "auth:client-1:session_token")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", value)

	_, err = client.Get(ctx, "auth:client-1:missing")
	assert.ErrorIs(t, err, Nil)
}

func TestClient_Set(t *testing.T) {
	mr, client := setupTestRedis(t)

	ctx := context.Background()

	tests := []struct {
		name string
		key  string
		ttl  time.Duration
	}{
		{
			name: "Set with TTL",
			key:  "auth:client-1:oauth_state",
			ttl:  TTLOAuthState,
		},
		{
			name: "Set with long TTL",
			key:  "auth:client-1:session_token",
			ttl:  TTLSessionToken,
		},
		{
			name: "Set with no expiration",
			key:  "auth:client-1:permanent",
			ttl:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Set(ctx, tt.key, "value", tt.ttl)
			require.NoError(t, err)

			val, err := mr.Get(tt.key)
			require.NoError(t, err)
			assert.Equal(t, "value", val)

			if tt.ttl > 0 {
				assert.Greater(t, mr.TTL(tt.key), time.Duration(0))
			}
		})
	}
}

func TestClient_Delete(t *testing.T) {
	mr, client := setupTestRedis(t)

	ctx := context.Background()

	mr.Set("auth:client-1:user_data", "{}")
	mr.Set("auth:client-1:auth_timestamp", "1700000000000")

	err := client.Delete(ctx, "auth:client-1:user_data", "auth:client-1:auth_timestamp")
	require.NoError(t, err)
	assert.False(t, mr.Exists("auth:client-1:user_data"))
	assert.False(t, mr.Exists("auth:client-1:auth_timestamp"))

	// Delete of non-existent key is not an error
	assert.NoError(t, client.Delete(ctx, "auth:client-1:missing"))
}

func TestClient_Exists(t *testing.T) {
	mr, client := setupTestRedis(t)

	ctx := context.Background()

	mr.Set("auth:client-1:session_token", "tok-123")

	count, err := client.Exists(ctx, "auth:client-1:session_token", "auth:client-1:missing")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestClient_Health(t *testing.T) {
	mr, client := setupTestRedis(t)

	ctx := context.Background()

	assert.NoError(t, client.Health(ctx))

	mr.Close()
	assert.Error(t, client.Health(ctx))
}
