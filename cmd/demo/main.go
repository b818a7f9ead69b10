// Command demo drives a full sign-in round trip without a browser or any
// external service: an in-process stub stands in for the session backend and
// a browserless navigator records the redirects a browser would perform.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"

	"github.com/golang-jwt/jwt/v5"

	"fashion-auth/internal/auth"
	"fashion-auth/internal/cache"
	"fashion-auth/internal/guard"
	"fashion-auth/internal/oauth"
	"fashion-auth/internal/session"
	"fashion-auth/internal/storage"
	"fashion-auth/pkg/logger"
)

const redirectURI = "http://localhost:5173"

func main() {
	log, err := logger.New("info", "development")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	backend := httptest.NewServer(stubBackend())
	defer backend.Close()

	local := storage.NewMemory()
	nav := oauth.NewBrowserlessNavigator(redirectURI)
	g := guard.New(local, log)
	flow := oauth.NewFlow("demo-client.apps.googleusercontent.com", redirectURI, g, nav, log)
	identityCache := cache.New(local, log)
	store := session.NewSupabaseStore(backend.URL, "demo-anon-key", log)
	sessions := session.NewManager(store, local, nil, log)

	facade := auth.New(flow, identityCache, sessions, log)
	defer facade.Close()

	ctx := context.Background()

	// 1. Fresh page load: nothing persisted, so the facade settles anonymous.
	facade.Start(ctx)
	printState("fresh page load", facade)

	// 2. The user clicks sign-in; the navigator records where a browser
	// would have gone.
	if err := facade.SignIn(ctx); err != nil {
		log.WithError(err).Fatal("Sign-in failed")
	}
	fmt.Printf("\nredirected to: %s\n", truncate(nav.LastRedirect(), 100))

	// 3. The provider redirects back with tokens in the fragment. Here we
	// mint the id_token ourselves instead of round-tripping through Google.
	state, err := local.Get(ctx, storage.KeyOAuthState)
	if err != nil {
		log.WithError(err).Fatal("No pending state")
	}
	fragment := url.Values{
		"id_token":     {mintIDToken(log)},
		"access_token": {"ya29.demo"},
		"state":        {state},
	}
	nav.Arrive(redirectURI + "#" + fragment.Encode())

	facade.Start(ctx)
	printState("after provider callback", facade)

	// 4. A later page load finds the persisted session token and revalidates.
	facade.Refresh(ctx)
	printState("after revalidation", facade)

	// 5. Sign out revokes the remote session and clears local state.
	facade.SignOut(ctx)
	printState("after sign-out", facade)
}

func printState(label string, facade *auth.Facade) {
	state := facade.Snapshot()
	fmt.Printf("\n[%s]\n  authenticated: %v\n", label, state.IsAuthenticated)
	if state.User != nil {
		fmt.Printf("  user: %s <%s>\n", state.User.Name, state.User.Email)
	}
	if state.Error != "" {
		fmt.Printf("  error: %s\n", state.Error)
	}
}

func mintIDToken(log *logger.Logger) string {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":            "demo-google-id",
		"email":          "demo@example.com",
		"name":           "Demo User",
		"email_verified": true,
	}).SignedString([]byte("demo"))
	if err != nil {
		log.WithError(err).Fatal("Failed to mint token")
	}
	return raw
}

// stubBackend speaks just enough of the session store's REST dialect for the
// demo round trip.
func stubBackend() http.Handler {
	mux := http.NewServeMux()
	writeResult := func(w http.ResponseWriter, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("/rest/v1/rpc/create_user_from_google", func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, "11111111-2222-3333-4444-555555555555")
	})
	mux.HandleFunc("/rest/v1/rpc/create_user_session", func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, "66666666-7777-8888-9999-000000000000")
	})
	mux.HandleFunc("/rest/v1/rpc/validate_session", func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, []map[string]interface{}{{
			"is_valid":      true,
			"user_id":       "11111111-2222-3333-4444-555555555555",
			"session_id":    "66666666-7777-8888-9999-000000000000",
			"needs_refresh": false,
		}})
	})
	mux.HandleFunc("/rest/v1/users", func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, map[string]interface{}{
			"id":        "11111111-2222-3333-4444-555555555555",
			"google_id": "demo-google-id",
			"email":     "demo@example.com",
			"is_active": true,
			"user_profiles": []map[string]interface{}{
				{"full_name": "Demo User", "picture_url": ""},
			},
		})
	})
	mux.HandleFunc("/rest/v1/user_sessions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/rest/v1/user_activities", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	return mux
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
