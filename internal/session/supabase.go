package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"fashion-auth/internal/domain"
	"fashion-auth/pkg/errors"
	"fashion-auth/pkg/logger"
)

// SupabaseStore speaks the session-store contract over PostgREST, the same
// endpoints the web client reached through supabase-js.
type SupabaseStore struct {
	client *resty.Client
	log    *logger.Logger
}

// NewSupabaseStore creates a store against the given Supabase project
func NewSupabaseStore(baseURL, anonKey string, log *logger.Logger) *SupabaseStore {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeaders(map[string]string{
			"apikey":        anonKey,
			"Authorization": "Bearer " + anonKey,
			"Content-Type":  "application/json",
		})

	return &SupabaseStore{client: client, log: log}
}

func (s *SupabaseStore) rpc(ctx context.Context, fn string, body interface{}, result interface{}) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		Post("/rest/v1/rpc/" + fn)
	if err != nil {
		return errors.NewTransportError(fmt.Sprintf("Failed to call %s", fn), err)
	}
	if resp.IsError() {
		return errors.NewSessionStoreError(
			fmt.Sprintf("%s returned status %d: %s", fn, resp.StatusCode(), resp.String()), nil)
	}
	return nil
}

// CreateUserFromGoogle registers or updates the user profile record
func (s *SupabaseStore) CreateUserFromGoogle(ctx context.Context, identity *domain.Identity) (string, error) {
	var userID string
	err := s.rpc(ctx, "create_user_from_google", map[string]interface{}{
		"p_google_id":   identity.ID,
		"p_email":       identity.Email,
		"p_given_name":  nullable(identity.GivenName),
		"p_family_name": nullable(identity.FamilyName),
		"p_full_name":   nullable(identity.Name),
		"p_picture_url": nullable(identity.Picture),
		"p_locale":      localeOrDefault(identity.Locale),
	}, &userID)
	if err != nil {
		return "", err
	}
	if userID == "" {
		return "", errors.NewSessionStoreError("create_user_from_google returned no user id", nil)
	}
	return userID, nil
}

// CreateUserSession issues a session row for the given token
func (s *SupabaseStore) CreateUserSession(ctx context.Context, userID, sessionToken, accessToken string, device *domain.DeviceInfo) (string, error) {
	var sessionID string
	err := s.rpc(ctx, "create_user_session", map[string]interface{}{
		"p_user_id":              userID,
		"p_session_token":        sessionToken,
		"p_google_access_token":  nullable(accessToken),
		"p_google_refresh_token": nil,
		"p_ip_address":           nil,
		"p_user_agent":           device.UserAgent,
		"p_device_info":          device,
	}, &sessionID)
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

// ValidateSession resolves a session token. A token the store does not know
// comes back as a row with is_valid=false, not an error.
func (s *SupabaseStore) ValidateSession(ctx context.Context, sessionToken string) (*ValidationRow, error) {
	var rows []ValidationRow
	err := s.rpc(ctx, "validate_session", map[string]interface{}{
		"p_session_token": sessionToken,
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &ValidationRow{IsValid: false}, nil
	}
	return &rows[0], nil
}

// GetUser loads the user row with its profile embedded
func (s *SupabaseStore) GetUser(ctx context.Context, userID string) (*domain.SessionUser, error) {
	var row struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		GoogleID  string    `json:"google_id"`
		LastLogin time.Time `json:"last_login"`
		IsActive  bool      `json:"is_active"`
		Profiles  []struct {
			FullName   string `json:"full_name"`
			PictureURL string `json:"picture_url"`
		} `json:"user_profiles"`
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/vnd.pgrst.object+json").
		SetQueryParams(map[string]string{
			"select": "*,user_profiles(*)",
			"id":     "eq." + userID,
		}).
		SetResult(&row).
		Get("/rest/v1/users")
	if err != nil {
		return nil, errors.NewTransportError("Failed to load user", err)
	}
	if resp.IsError() {
		return nil, errors.NewSessionStoreError(
			fmt.Sprintf("users query returned status %d", resp.StatusCode()), nil)
	}

	user := &domain.SessionUser{
		ID:        row.ID,
		Email:     row.Email,
		GoogleID:  row.GoogleID,
		LastLogin: row.LastLogin,
		IsActive:  row.IsActive,
	}
	if len(row.Profiles) > 0 {
		user.FullName = row.Profiles[0].FullName
		user.Picture = row.Profiles[0].PictureURL
	}
	return user, nil
}

// RevokeSession marks the session row inactive
func (s *SupabaseStore) RevokeSession(ctx context.Context, sessionToken string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("session_token", "eq."+sessionToken).
		SetBody(map[string]interface{}{
			"is_active":  false,
			"revoked_at": time.Now().UTC().Format(time.RFC3339),
		}).
		Patch("/rest/v1/user_sessions")
	if err != nil {
		return errors.NewTransportError("Failed to revoke session", err)
	}
	if resp.IsError() {
		return errors.NewSessionStoreError(
			fmt.Sprintf("session revoke returned status %d", resp.StatusCode()), nil)
	}
	return nil
}

// InsertActivity appends to the activity log
func (s *SupabaseStore) InsertActivity(ctx context.Context, activity *domain.Activity) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(activity).
		Post("/rest/v1/user_activities")
	if err != nil {
		return errors.NewTransportError("Failed to insert activity", err)
	}
	if resp.IsError() {
		return errors.NewSessionStoreError(
			fmt.Sprintf("activity insert returned status %d", resp.StatusCode()), nil)
	}
	return nil
}

// nullable maps empty strings to JSON null, matching the RPC signatures
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func localeOrDefault(locale string) string {
	if locale == "" {
		return "en"
	}
	return locale
}
