package auth

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"fashion-auth/internal/cache"
	"fashion-auth/internal/domain"
	"fashion-auth/internal/oauth"
	"fashion-auth/internal/session"
	"fashion-auth/pkg/errors"
	"fashion-auth/pkg/logger"
)

// sessionCheckInterval is how often an authenticated session is revalidated
const sessionCheckInterval = 5 * time.Minute

// SessionExpiredMessage is surfaced when the periodic check finds the remote
// session revoked
const SessionExpiredMessage = "Session expired. Please sign in again."

// State is the facade's externally visible authentication state
type State struct {
	Loading         bool             `json:"loading"`
	User            *domain.Identity `json:"user"`
	Error           string           `json:"error,omitempty"`
	IsAuthenticated bool             `json:"is_authenticated"`
}

// Facade orchestrates the redirect flow, the identity cache, and the remote
// session manager into one state machine: loading, authenticated, anonymous,
// or error.
type Facade struct {
	flow     *oauth.Flow
	cache    *cache.IdentityCache
	sessions *session.Manager
	log      *logger.Logger

	interval time.Duration

	mu    sync.Mutex
	state State

	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a Facade
type Option func(*Facade)

// WithCheckInterval overrides the periodic revalidation interval
func WithCheckInterval(interval time.Duration) Option {
	return func(f *Facade) { f.interval = interval }
}

// New creates a facade in the loading state
func New(flow *oauth.Flow, identityCache *cache.IdentityCache, sessions *session.Manager, log *logger.Logger, opts ...Option) *Facade {
	f := &Facade{
		flow:     flow,
		cache:    identityCache,
		sessions: sessions,
		log:      log,
		interval: sessionCheckInterval,
		state:    State{Loading: true},
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Snapshot returns a copy of the current state
func (f *Facade) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Start runs the startup algorithm once and launches the background session
// monitor. Loading is cleared exactly once, after the callback or the session
// check has settled; no UI decision should be made before that.
func (f *Facade) Start(ctx context.Context) {
	var callbackErr error

	if f.flow.IsCallback() {
		identity, accessToken, err := f.flow.CompleteSignIn(ctx)
		if err == nil {
			if _, exErr := f.sessions.ExchangeIdentity(ctx, identity, accessToken); exErr == nil {
				if saveErr := f.cache.Save(ctx, identity); saveErr != nil {
					f.log.WithError(saveErr).Warn("Failed to cache identity")
				}
				f.setAuthenticated(identity)
				f.sessions.LogActivity(ctx, "login", map[string]interface{}{"loginMethod": "google_oauth"})
				f.finishLoading()
				go f.monitor()
				return
			} else {
				err = exErr
			}
		}
		// The session check below is the authoritative fallback; the
		// callback error only surfaces if that comes up empty too.
		f.log.WithError(err).Warn("OAuth callback failed, falling back to session check")
		callbackErr = err
	}

	validation := f.sessions.Validate(ctx, "")
	switch {
	case validation.IsValid:
		f.setAuthenticated(identityFromSessionUser(validation.User))
		f.sessions.LogActivity(ctx, "login", nil)
	default:
		if cached := f.cache.Load(ctx); cached != nil {
			f.setAuthenticated(cached)
		} else {
			f.setAnonymous(errorMessage(callbackErr))
		}
	}

	f.finishLoading()
	go f.monitor()
}

// SignIn begins the redirect flow. It does not return a value on the success
// path in a real browser: control leaves the page.
func (f *Facade) SignIn(ctx context.Context) error {
	f.mu.Lock()
	f.state.Error = ""
	f.mu.Unlock()

	if err := f.flow.BeginSignIn(ctx); err != nil {
		f.mu.Lock()
		f.state.Error = errorMessage(err)
		f.mu.Unlock()
		return err
	}
	return nil
}

// SignOut logs the sign-out, revokes the remote session best-effort, and
// always ends anonymous.
func (f *Facade) SignOut(ctx context.Context) bool {
	if f.Snapshot().IsAuthenticated {
		f.sessions.LogActivity(ctx, "logout", nil)
	}

	ok := f.sessions.SignOut(ctx)
	f.cache.Clear(ctx)
	f.setAnonymous("")
	return ok
}

// Refresh revalidates the remote session and adopts the result. Racing with
// the periodic check is fine: both derive from the same authoritative check,
// last writer wins.
func (f *Facade) Refresh(ctx context.Context) {
	if !f.Snapshot().IsAuthenticated {
		return
	}

	validation := f.sessions.Validate(ctx, "")
	if validation.IsValid {
		f.setAuthenticated(identityFromSessionUser(validation.User))
	} else {
		f.cache.Clear(ctx)
		f.setAnonymous("")
	}
}

// ClearError drops any surfaced error
func (f *Facade) ClearError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Error = ""
}

// HandleVisible records a page_focus activity. Best-effort, never errors.
func (f *Facade) HandleVisible(ctx context.Context) {
	if f.Snapshot().IsAuthenticated {
		f.sessions.LogActivity(ctx, "page_focus", nil)
	}
}

// HandleUnload records a page_unload activity. Best-effort, never blocks
// navigation.
func (f *Facade) HandleUnload(ctx context.Context) {
	if f.Snapshot().IsAuthenticated {
		f.sessions.LogActivity(ctx, "page_unload", nil)
	}
}

// Close stops the background monitor
func (f *Facade) Close() {
	f.stopOnce.Do(func() { close(f.stop) })
}

// monitor revalidates the session periodically while authenticated and forces
// a sign-out when the store no longer recognizes it
func (f *Facade) monitor() {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			if !f.Snapshot().IsAuthenticated {
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			validation := f.sessions.Validate(ctx, "")
			cancel()

			if !validation.IsValid {
				f.log.Info("Periodic check found session invalid, forcing sign-out")
				f.cache.Clear(context.Background())
				f.setAnonymous(SessionExpiredMessage)
			}
		}
	}
}

func (f *Facade) setAuthenticated(identity *domain.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.User = identity
	f.state.IsAuthenticated = true
	f.state.Error = ""
}

func (f *Facade) setAnonymous(errMsg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.User = nil
	f.state.IsAuthenticated = false
	f.state.Error = errMsg
}

func (f *Facade) finishLoading() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Loading = false
}

// identityFromSessionUser maps the session store's user record back into the
// identity shape the UI consumes
func identityFromSessionUser(user *domain.SessionUser) *domain.Identity {
	if user == nil {
		return nil
	}
	return &domain.Identity{
		ID:       user.GoogleID,
		Email:    user.Email,
		Name:     user.FullName,
		Picture:  user.Picture,
		Verified: true, // the store only registers verified sign-ins
	}
}

// errorMessage extracts the user-facing message from an error
func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
