package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"fashion-auth/internal/container"
	"fashion-auth/pkg/errors"
)

// AuthHandler exposes the sign-in flow and session lifecycle over HTTP.
// Callbacks arrive as URL fragments, which browsers never send to servers,
// so the frontend posts the fragment body here explicitly.
type AuthHandler struct {
	container *container.Container
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(container *container.Container) *AuthHandler {
	return &AuthHandler{
		container: container,
	}
}

// BeginResponse carries the provider URL the frontend should navigate to
type BeginResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// CallbackRequest is the fragment portion of the provider redirect
type CallbackRequest struct {
	Fragment string `json:"fragment"`
}

// CallbackResponse is returned after a callback fragment resolves
type CallbackResponse struct {
	User         interface{} `json:"user"`
	SessionToken string      `json:"session_token"`
}

// SignOutResponse reports whether the remote session was revoked
type SignOutResponse struct {
	SignedOut     bool `json:"signed_out"`
	RemoteRevoked bool `json:"remote_revoked"`
}

// Begin handles POST /api/auth/begin
func (h *AuthHandler) Begin(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	if err := h.container.Flow.BeginSignIn(r.Context()); err != nil {
		writeError(w, err, logger)
		return
	}

	authURL := h.container.Navigator.LastRedirect()
	if authURL == "" {
		authURL = h.container.Navigator.LastPopup()
	}

	writeJSON(w, http.StatusOK, BeginResponse{AuthorizationURL: authURL}, logger)
}

// Callback handles POST /api/auth/callback
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.container.GetLogger()

	var req CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewValidationError("Invalid request body", nil), logger)
		return
	}
	if req.Fragment == "" {
		writeError(w, errors.NewValidationError("Fragment is required", nil), logger)
		return
	}

	h.container.Navigator.Arrive(h.container.Config.GoogleRedirectURI + "#" + strings.TrimPrefix(req.Fragment, "#"))

	identity, accessToken, err := h.container.Flow.CompleteSignIn(ctx)
	if err != nil {
		writeError(w, err, logger)
		return
	}

	result, err := h.container.Sessions.ExchangeIdentity(ctx, identity, accessToken)
	if err != nil {
		writeError(w, err, logger)
		return
	}

	if err := h.container.Cache.Save(ctx, identity); err != nil {
		logger.WithError(err).Warn("Failed to cache identity")
	}

	h.container.Sessions.LogActivity(ctx, "login", map[string]interface{}{
		"loginMethod": "google_oauth",
	})

	writeJSON(w, http.StatusOK, CallbackResponse{
		User:         identity,
		SessionToken: result.SessionToken,
	}, logger)
}

// Session handles GET /api/auth/session.
// An explicit Bearer token wins; otherwise the locally persisted token is used.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	validation := h.container.Sessions.Validate(r.Context(), bearerToken(r))

	writeJSON(w, http.StatusOK, validation, logger)
}

// SignOut handles POST /api/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.container.GetLogger()

	h.container.Sessions.LogActivity(ctx, "logout", nil)
	remoteOK := h.container.Sessions.SignOut(ctx)
	h.container.Cache.Clear(ctx)

	writeJSON(w, http.StatusOK, SignOutResponse{
		SignedOut:     true,
		RemoteRevoked: remoteOK,
	}, logger)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
