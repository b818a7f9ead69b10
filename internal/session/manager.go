package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"fashion-auth/internal/domain"
	"fashion-auth/internal/storage"
	"fashion-auth/pkg/errors"
	"fashion-auth/pkg/logger"
)

// sessionTokenBytes of randomness per opaque session token, hex-encoded
const sessionTokenBytes = 32

// ExchangeResult is what a successful identity exchange yields
type ExchangeResult struct {
	SessionToken string
	SessionID    string
	UserID       string
}

// Manager exchanges a resolved identity for a server-issued session and keeps
// the locally persisted token in step with the remote store.
type Manager struct {
	store  Store
	local  storage.Store
	device *domain.DeviceInfo
	log    *logger.Logger
}

// NewManager creates a session manager over the given stores
func NewManager(store Store, local storage.Store, device *domain.DeviceInfo, log *logger.Logger) *Manager {
	if device == nil {
		device = defaultDeviceInfo()
	}
	return &Manager{store: store, local: local, device: device, log: log}
}

// ExchangeIdentity registers the user, issues a session token, and persists
// it locally. Any store-side rejection surfaces as a SessionStoreError.
func (m *Manager) ExchangeIdentity(ctx context.Context, identity *domain.Identity, accessToken string) (*ExchangeResult, error) {
	userID, err := m.store.CreateUserFromGoogle(ctx, identity)
	if err != nil {
		return nil, wrapStoreErr("Failed to register user", err)
	}

	sessionToken, err := generateSessionToken()
	if err != nil {
		return nil, errors.NewInternalError("Failed to generate session token", err)
	}

	sessionID, err := m.store.CreateUserSession(ctx, userID, sessionToken, accessToken, m.device)
	if err != nil {
		return nil, wrapStoreErr("Failed to create session", err)
	}

	if err := m.local.Set(ctx, storage.KeySessionToken, sessionToken); err != nil {
		return nil, errors.NewInternalError("Failed to persist session token", err)
	}
	createdAt := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := m.local.Set(ctx, storage.KeySessionCreatedAt, createdAt); err != nil {
		return nil, errors.NewInternalError("Failed to persist session timestamp", err)
	}

	m.log.WithFields(map[string]interface{}{
		"user_id":    userID,
		"session_id": sessionID,
	}).Info("Identity exchanged for remote session")

	return &ExchangeResult{
		SessionToken: sessionToken,
		SessionID:    sessionID,
		UserID:       userID,
	}, nil
}

// Validate resolves a session token to a user record. It never returns an
// error: any failure reports IsValid=false and clears all locally persisted
// session and identity state.
func (m *Manager) Validate(ctx context.Context, sessionToken string) *domain.SessionValidation {
	token := sessionToken
	if token == "" {
		stored, err := m.local.Get(ctx, storage.KeySessionToken)
		if err != nil {
			return &domain.SessionValidation{IsValid: false}
		}
		token = stored
	}

	row, err := m.store.ValidateSession(ctx, token)
	if err != nil {
		m.log.WithError(err).Debug("Session validation failed, treating as no session")
		m.clearLocal(ctx)
		return &domain.SessionValidation{IsValid: false}
	}
	if !row.IsValid {
		m.clearLocal(ctx)
		return &domain.SessionValidation{IsValid: false}
	}

	user, err := m.store.GetUser(ctx, row.UserID)
	if err != nil {
		m.log.WithError(err).Debug("User lookup failed after valid session")
		m.clearLocal(ctx)
		return &domain.SessionValidation{IsValid: false}
	}

	return &domain.SessionValidation{
		IsValid: true,
		User:    user,
		Session: &domain.RemoteSession{
			SessionID:    row.SessionID,
			SessionToken: token,
			UserID:       row.UserID,
			NeedsRefresh: row.NeedsRefresh,
		},
		NeedsRefresh: row.NeedsRefresh,
	}
}

// SignOut revokes the remote session best-effort and always clears local
// state. The return value reports whether the remote call succeeded.
func (m *Manager) SignOut(ctx context.Context) bool {
	remoteOK := true

	token, err := m.local.Get(ctx, storage.KeySessionToken)
	if err == nil && token != "" {
		if err := m.store.RevokeSession(ctx, token); err != nil {
			m.log.WithError(err).Warn("Remote session revoke failed, clearing local state anyway")
			remoteOK = false
		}
	}

	m.clearLocal(ctx)
	return remoteOK
}

// LogActivity appends to the activity log keyed by the current session.
// Failures are swallowed; logging must never surface or block the caller.
func (m *Manager) LogActivity(ctx context.Context, activityType string, data map[string]interface{}) {
	token, err := m.local.Get(ctx, storage.KeySessionToken)
	if err != nil || token == "" {
		return
	}

	row, err := m.store.ValidateSession(ctx, token)
	if err != nil || !row.IsValid {
		return
	}

	activity := &domain.Activity{
		UserID:       row.UserID,
		SessionID:    row.SessionID,
		ActivityType: activityType,
		ActivityData: data,
		UserAgent:    m.device.UserAgent,
	}

	if err := m.store.InsertActivity(ctx, activity); err != nil {
		m.log.WithError(err).Debug("Activity logging failed")
	}
}

// ShouldRefresh reports whether the current session is close enough to expiry
// that the store flagged it for refresh
func (m *Manager) ShouldRefresh(ctx context.Context) bool {
	token, err := m.local.Get(ctx, storage.KeySessionToken)
	if err != nil || token == "" {
		return false
	}

	row, err := m.store.ValidateSession(ctx, token)
	if err != nil {
		return false
	}
	return row.IsValid && row.NeedsRefresh
}

// clearLocal removes every persisted session and identity key
func (m *Manager) clearLocal(ctx context.Context) {
	for _, key := range []string{
		storage.KeySessionToken,
		storage.KeySessionCreatedAt,
		storage.KeyUserData,
		storage.KeyAuthTimestamp,
		storage.KeyOAuthState,
	} {
		_ = m.local.Delete(ctx, key)
	}
}

// wrapStoreErr keeps already-typed store errors and types everything else
func wrapStoreErr(message string, err error) error {
	if errors.IsType(err, errors.ErrorTypeSessionStore) || errors.IsType(err, errors.ErrorTypeTransport) {
		return err
	}
	return errors.NewSessionStoreError(message, err)
}

// generateSessionToken returns 32 random bytes hex-encoded, the same shape
// the web client generated
func generateSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func defaultDeviceInfo() *domain.DeviceInfo {
	return &domain.DeviceInfo{
		Platform:  runtime.GOOS,
		Language:  "en",
		UserAgent: "fashion-auth/1.0",
		Timezone:  time.Local.String(),
	}
}
