package domain

import "time"

// Identity represents the user identity decoded from a Google ID token.
// Immutable once constructed; unknown claims stay zero-valued.
type Identity struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Picture    string `json:"picture"`
	Verified   bool   `json:"verified"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Locale     string `json:"locale,omitempty"`
}

// PendingAuthRequest correlates a redirect round trip. Created when a sign-in
// is initiated and consumed exactly once on callback; at most one is
// outstanding at a time (a second sign-in attempt overwrites the first).
type PendingAuthRequest struct {
	State     string    `json:"state"`
	Nonce     string    `json:"nonce"`
	CreatedAt time.Time `json:"created_at"`
}
