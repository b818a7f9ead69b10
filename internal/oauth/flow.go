package oauth

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/oauth2/google"

	"fashion-auth/internal/domain"
	"fashion-auth/internal/guard"
	"fashion-auth/internal/token"
	"fashion-auth/pkg/errors"
	"fashion-auth/pkg/logger"
)

// Mode selects how the authorization URL is presented to the user. The web
// client shipped five parallel sign-in implementations; they differ only here.
type Mode string

const (
	ModeRedirect Mode = "redirect"
	ModePopup    Mode = "popup"
)

const scope = "openid email profile"

// Flow drives the implicit-grant redirect round trip:
// Idle -> Redirecting -> (navigation) -> CallbackReceived -> Resolved/Failed.
type Flow struct {
	clientID    string
	redirectURI string
	mode        Mode
	guard       *guard.Guard
	nav         Navigator
	verifier    *token.Verifier // nil means unverified decode
	log         *logger.Logger
}

// Option configures a Flow
type Option func(*Flow)

// WithMode selects redirect or popup presentation
func WithMode(mode Mode) Option {
	return func(f *Flow) { f.mode = mode }
}

// WithVerifier switches callback decoding to signature-checked validation
func WithVerifier(v *token.Verifier) Option {
	return func(f *Flow) { f.verifier = v }
}

// NewFlow creates a redirect flow for the given OAuth client
func NewFlow(clientID, redirectURI string, g *guard.Guard, nav Navigator, log *logger.Logger, opts ...Option) *Flow {
	f := &Flow{
		clientID:    clientID,
		redirectURI: redirectURI,
		mode:        ModeRedirect,
		guard:       g,
		nav:         nav,
		log:         log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// AuthorizationURL builds the provider authorization request for the given
// pending request. Split out from BeginSignIn so the HTTP surface can hand
// the URL to a SPA instead of navigating itself.
func (f *Flow) AuthorizationURL(pending *domain.PendingAuthRequest) string {
	params := url.Values{}
	params.Set("client_id", f.clientID)
	params.Set("redirect_uri", f.redirectURI)
	params.Set("response_type", "token id_token")
	params.Set("scope", scope)
	params.Set("prompt", "select_account")
	params.Set("state", pending.State)
	params.Set("nonce", pending.Nonce)

	return google.Endpoint.AuthURL + "?" + params.Encode()
}

// BeginSignIn issues the state/nonce pair, persists the state, and navigates
// to the provider. In redirect mode control leaves the page; everything the
// callback needs is durably persisted before the navigation.
func (f *Flow) BeginSignIn(ctx context.Context) error {
	pending, err := f.guard.Issue(ctx)
	if err != nil {
		return errors.NewInternalError("Failed to prepare sign-in", err)
	}

	authURL := f.AuthorizationURL(pending)

	f.log.WithField("mode", string(f.mode)).Info("Redirecting to identity provider")

	if f.mode == ModePopup {
		return f.nav.OpenPopup(authURL)
	}
	return f.nav.Redirect(authURL)
}

// IsCallback reports whether the current location carries an OAuth response
// fragment. Pure predicate, no side effects.
func (f *Flow) IsCallback() bool {
	fragment := currentFragment(f.nav.Location())
	if fragment == "" {
		return false
	}
	return strings.Contains(fragment, "access_token") ||
		strings.Contains(fragment, "id_token") ||
		strings.Contains(fragment, "error")
}

// CompleteSignIn parses the callback fragment, checks the state, and decodes
// the identity token. The fragment is cleared from the visible URL whether or
// not the callback resolves, so tokens never linger in history or referrers.
func (f *Flow) CompleteSignIn(ctx context.Context) (*domain.Identity, string, error) {
	location := f.nav.Location()
	defer f.clearFragment(location)

	params, err := url.ParseQuery(currentFragment(location))
	if err != nil {
		return nil, "", errors.NewValidationError("Malformed callback fragment", nil)
	}

	if code := params.Get("error"); code != "" {
		f.log.WithField("code", code).Warn("Identity provider returned an error")
		return nil, "", errors.NewProviderError(code)
	}

	if !f.guard.Verify(ctx, params.Get("state")) {
		return nil, "", errors.NewCsrfMismatchError("Invalid state parameter")
	}

	idToken := params.Get("id_token")
	if idToken == "" {
		return nil, "", errors.NewValidationError("No ID token in callback", nil)
	}

	identity, err := f.decode(ctx, idToken)
	if err != nil {
		return nil, "", err
	}

	f.log.WithField("user_id", identity.ID).Info("OAuth callback resolved")

	return identity, params.Get("access_token"), nil
}

func (f *Flow) decode(ctx context.Context, raw string) (*domain.Identity, error) {
	if f.verifier != nil {
		return f.verifier.Decode(ctx, raw)
	}
	return token.Decode(raw)
}

// clearFragment rewrites the visible URL without its fragment
func (f *Flow) clearFragment(location string) {
	u, err := url.Parse(location)
	if err != nil {
		return
	}
	u.Fragment = ""
	if err := f.nav.ReplaceURL(u.String()); err != nil {
		f.log.WithError(err).Warn("Failed to clear callback fragment")
	}
}

// currentFragment extracts the fragment portion of a URL string
func currentFragment(location string) string {
	idx := strings.Index(location, "#")
	if idx < 0 || idx == len(location)-1 {
		return ""
	}
	return location[idx+1:]
}
