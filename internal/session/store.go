package session

import (
	"context"

	"fashion-auth/internal/domain"
)

// ValidationRow is what the session store's validate_session function returns
type ValidationRow struct {
	IsValid      bool   `json:"is_valid"`
	UserID       string `json:"user_id"`
	SessionID    string `json:"session_id"`
	NeedsRefresh bool   `json:"needs_refresh"`
}

// Store is the session-store RPC contract. SupabaseStore speaks it over
// PostgREST; PostgresStore calls the same SQL functions directly.
type Store interface {
	// CreateUserFromGoogle registers or updates the user keyed by provider
	// identity id and returns the store's user id
	CreateUserFromGoogle(ctx context.Context, identity *domain.Identity) (string, error)
	// CreateUserSession issues a session row for the given token
	CreateUserSession(ctx context.Context, userID, sessionToken, accessToken string, device *domain.DeviceInfo) (string, error)
	// ValidateSession resolves a session token
	ValidateSession(ctx context.Context, sessionToken string) (*ValidationRow, error)
	// GetUser loads the user record behind a validated session
	GetUser(ctx context.Context, userID string) (*domain.SessionUser, error)
	// RevokeSession marks the session inactive
	RevokeSession(ctx context.Context, sessionToken string) error
	// InsertActivity appends to the activity log
	InsertActivity(ctx context.Context, activity *domain.Activity) error
}
