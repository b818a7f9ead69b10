package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fashion-auth/internal/cache"
	"fashion-auth/internal/config"
	"fashion-auth/internal/container"
	"fashion-auth/internal/domain"
	"fashion-auth/internal/guard"
	"fashion-auth/internal/oauth"
	"fashion-auth/internal/session"
	"fashion-auth/internal/storage"
	"fashion-auth/pkg/errors"
	"fashion-auth/pkg/logger"
)

const testRedirectURI = "http://localhost:5173"

// fakeSessionStore implements session.Store in memory for handler tests
type fakeSessionStore struct {
	users    map[string]*domain.SessionUser
	sessions map[string]*session.ValidationRow
	revoked  int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		users:    make(map[string]*domain.SessionUser),
		sessions: make(map[string]*session.ValidationRow),
	}
}

func (s *fakeSessionStore) CreateUserFromGoogle(_ context.Context, identity *domain.Identity) (string, error) {
	userID := "user-" + identity.ID
	s.users[userID] = &domain.SessionUser{
		ID:       userID,
		GoogleID: identity.ID,
		Email:    identity.Email,
		FullName: identity.Name,
		IsActive: true,
	}
	return userID, nil
}

func (s *fakeSessionStore) CreateUserSession(_ context.Context, userID, token, _ string, _ *domain.DeviceInfo) (string, error) {
	s.sessions[token] = &session.ValidationRow{IsValid: true, UserID: userID, SessionID: "sess-1"}
	return "sess-1", nil
}

func (s *fakeSessionStore) ValidateSession(_ context.Context, token string) (*session.ValidationRow, error) {
	if row, ok := s.sessions[token]; ok {
		return row, nil
	}
	return &session.ValidationRow{IsValid: false}, nil
}

func (s *fakeSessionStore) GetUser(_ context.Context, userID string) (*domain.SessionUser, error) {
	if user, ok := s.users[userID]; ok {
		return user, nil
	}
	return nil, errors.NewNotFoundError("User not found")
}

func (s *fakeSessionStore) RevokeSession(_ context.Context, token string) error {
	s.revoked++
	if row, ok := s.sessions[token]; ok {
		row.IsValid = false
	}
	return nil
}

func (s *fakeSessionStore) InsertActivity(_ context.Context, _ *domain.Activity) error {
	return nil
}

type handlerFixture struct {
	container *container.Container
	local     *storage.Memory
	store     *fakeSessionStore
	nav       *oauth.BrowserlessNavigator
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	log := logger.NewNop()
	local := storage.NewMemory()
	nav := oauth.NewBrowserlessNavigator(testRedirectURI)
	g := guard.New(local, log)
	flow := oauth.NewFlow("client-id.apps.googleusercontent.com", testRedirectURI, g, nav, log)
	store := newFakeSessionStore()

	c := &container.Container{
		Config: &config.Config{
			GoogleClientID:    "client-id.apps.googleusercontent.com",
			GoogleRedirectURI: testRedirectURI,
		},
		Logger:    log,
		Store:     local,
		Navigator: nav,
		Flow:      flow,
		Cache:     cache.New(local, log),
		Sessions:  session.NewManager(store, local, nil, log),
	}

	return &handlerFixture{container: c, local: local, store: store, nav: nav}
}

func signCallbackToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test"))
	require.NoError(t, err)
	return raw
}

// beginAndBuildFragment drives POST /api/auth/begin and fabricates the
// provider's callback fragment with the persisted state.
func (fx *handlerFixture) beginAndBuildFragment(t *testing.T) string {
	t.Helper()

	h := NewAuthHandler(fx.container)
	rec := httptest.NewRecorder()
	h.Begin(rec, httptest.NewRequest(http.MethodPost, "/api/auth/begin", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	state, err := fx.local.Get(context.Background(), storage.KeyOAuthState)
	require.NoError(t, err)

	idToken := signCallbackToken(t, jwt.MapClaims{
		"sub":            "g-42",
		"email":          "mali@example.com",
		"name":           "Mali T.",
		"email_verified": true,
	})
	return "id_token=" + idToken + "&access_token=ya29.at&state=" + state
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestBegin_ReturnsAuthorizationURL(t *testing.T) {
	fx := newHandlerFixture(t)
	h := NewAuthHandler(fx.container)

	rec := httptest.NewRecorder()
	h.Begin(rec, httptest.NewRequest(http.MethodPost, "/api/auth/begin", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp BeginResponse
	decodeData(t, rec, &resp)
	assert.Contains(t, resp.AuthorizationURL, "accounts.google.com")
	assert.Contains(t, resp.AuthorizationURL, "state=")
	assert.Contains(t, resp.AuthorizationURL, "nonce=")
}

func TestCallback_ResolvesIdentityAndIssuesSession(t *testing.T) {
	fx := newHandlerFixture(t)
	h := NewAuthHandler(fx.container)

	fragment := fx.beginAndBuildFragment(t)

	body, _ := json.Marshal(CallbackRequest{Fragment: fragment})
	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodPost, "/api/auth/callback", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp CallbackResponse
	decodeData(t, rec, &resp)
	assert.Len(t, resp.SessionToken, 64)
	assert.Contains(t, fx.store.sessions, resp.SessionToken)

	// The identity was cached for the next page load
	identity := fx.container.Cache.Load(context.Background())
	require.NotNil(t, identity)
	assert.Equal(t, "g-42", identity.ID)
}

func TestCallback_ForgedStateIsRejected(t *testing.T) {
	fx := newHandlerFixture(t)
	h := NewAuthHandler(fx.container)

	fx.beginAndBuildFragment(t)

	idToken := signCallbackToken(t, jwt.MapClaims{"sub": "g-42", "email": "mali@example.com"})
	body, _ := json.Marshal(CallbackRequest{Fragment: "id_token=" + idToken + "&state=forged"})
	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodPost, "/api/auth/callback", bytes.NewReader(body)))

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, errors.ErrorTypeCsrfMismatch, resp.Error.Type)
}

func TestCallback_ProviderErrorSurfaces(t *testing.T) {
	fx := newHandlerFixture(t)
	h := NewAuthHandler(fx.container)

	body, _ := json.Marshal(CallbackRequest{Fragment: "error=access_denied"})
	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodPost, "/api/auth/callback", bytes.NewReader(body)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "OAuth error: access_denied", resp.Error.Message)
}

func TestCallback_EmptyBodyIsRejected(t *testing.T) {
	fx := newHandlerFixture(t)
	h := NewAuthHandler(fx.container)

	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodPost, "/api/auth/callback", bytes.NewReader([]byte("{}"))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSession_ValidatesPersistedToken(t *testing.T) {
	fx := newHandlerFixture(t)
	h := NewAuthHandler(fx.container)

	fragment := fx.beginAndBuildFragment(t)
	body, _ := json.Marshal(CallbackRequest{Fragment: fragment})
	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodPost, "/api/auth/callback", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Session(rec, httptest.NewRequest(http.MethodGet, "/api/auth/session", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var validation domain.SessionValidation
	decodeData(t, rec, &validation)
	assert.True(t, validation.IsValid)
	require.NotNil(t, validation.User)
	assert.Equal(t, "mali@example.com", validation.User.Email)
}

func TestSession_ExplicitBearerTokenWins(t *testing.T) {
	fx := newHandlerFixture(t)
	h := NewAuthHandler(fx.container)

	fx.store.users["user-1"] = &domain.SessionUser{ID: "user-1", Email: "nok@example.com", IsActive: true}
	fx.store.sessions["explicit-token"] = &session.ValidationRow{IsValid: true, UserID: "user-1", SessionID: "sess-9"}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.Header.Set("Authorization", "Bearer explicit-token")
	rec := httptest.NewRecorder()
	h.Session(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var validation domain.SessionValidation
	decodeData(t, rec, &validation)
	assert.True(t, validation.IsValid)
}

func TestSession_NoTokenIsInvalidNotError(t *testing.T) {
	fx := newHandlerFixture(t)
	h := NewAuthHandler(fx.container)

	rec := httptest.NewRecorder()
	h.Session(rec, httptest.NewRequest(http.MethodGet, "/api/auth/session", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var validation domain.SessionValidation
	decodeData(t, rec, &validation)
	assert.False(t, validation.IsValid)
}

func TestSignOut_RevokesSessionAndClearsLocalState(t *testing.T) {
	fx := newHandlerFixture(t)
	h := NewAuthHandler(fx.container)

	fragment := fx.beginAndBuildFragment(t)
	body, _ := json.Marshal(CallbackRequest{Fragment: fragment})
	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodPost, "/api/auth/callback", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.SignOut(rec, httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SignOutResponse
	decodeData(t, rec, &resp)
	assert.True(t, resp.SignedOut)
	assert.True(t, resp.RemoteRevoked)
	assert.Equal(t, 1, fx.store.revoked)

	_, err := fx.local.Get(context.Background(), storage.KeySessionToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestHealth_ReportsHealthy(t *testing.T) {
	fx := newHandlerFixture(t)
	h := NewHealthHandler(fx.container)

	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "fashion-auth", resp.Service)
	assert.Empty(t, resp.Redis)
}
