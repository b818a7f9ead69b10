package domain

import "time"

// RemoteSession describes the server-issued session the client correlates to
// through an opaque session token. Invalidated server-side on sign-out or
// expiry; any validation failure means "no session".
type RemoteSession struct {
	SessionID    string    `json:"session_id"`
	SessionToken string    `json:"session_token"`
	UserID       string    `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	NeedsRefresh bool      `json:"needs_refresh"`
}

// SessionUser is the user record resolved by a successful session validation
type SessionUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	GoogleID  string    `json:"google_id"`
	FullName  string    `json:"full_name"`
	Picture   string    `json:"picture"`
	LastLogin time.Time `json:"last_login"`
	IsActive  bool      `json:"is_active"`
}

// SessionValidation is the result of a session validation round trip.
// IsValid is false on any failure; Validate never surfaces an error.
type SessionValidation struct {
	IsValid      bool           `json:"is_valid"`
	User         *SessionUser   `json:"user,omitempty"`
	Session      *RemoteSession `json:"session,omitempty"`
	NeedsRefresh bool           `json:"needs_refresh"`
}

// Activity is a fire-and-forget entry in the user activity log
type Activity struct {
	UserID       string                 `json:"user_id"`
	SessionID    string                 `json:"session_id"`
	ActivityType string                 `json:"activity_type"`
	ActivityData map[string]interface{} `json:"activity_data,omitempty"`
	UserAgent    string                 `json:"user_agent,omitempty"`
}

// DeviceInfo accompanies session creation for auditability
type DeviceInfo struct {
	Platform  string `json:"platform"`
	Language  string `json:"language"`
	UserAgent string `json:"user_agent"`
	Timezone  string `json:"timezone"`
}
