package storage

import "context"

// Persisted local keys. These mirror the keys the web client keeps in
// localStorage so that server-held state stays interchangeable with it.
const (
	KeyUserData         = "user_data"
	KeyAuthTimestamp    = "auth_timestamp"
	KeySessionToken     = "session_token"
	KeySessionCreatedAt = "session_created_at"
	KeyOAuthState       = "oauth_state"
)

// ErrNotFound is returned by Get when a key has no value
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "storage: key not found" }

// Store is the persistent key-value capability the auth core writes through.
// Implementations use unconditional last-write-wins semantics; there is no
// locking and no transaction (single active context assumption).
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
