package guard

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"time"

	"fashion-auth/internal/domain"
	"fashion-auth/internal/storage"
	"fashion-auth/pkg/logger"
)

// entropyBytes is the random material per value. 32 bytes = 256 bits, matching
// what the session store uses for its own tokens.
const entropyBytes = 32

// Guard issues and verifies the anti-CSRF correlation values carried through
// the OAuth redirect round trip. The state value is persisted for comparison;
// the nonce is bound into the authorization request and checked by the
// provider, not by us.
type Guard struct {
	store storage.Store
	log   *logger.Logger
}

// New creates a Guard over the given store
func New(store storage.Store, log *logger.Logger) *Guard {
	return &Guard{store: store, log: log}
}

// Issue generates a fresh state/nonce pair and persists the state. Any
// previously outstanding request is overwritten; there is no queuing.
func (g *Guard) Issue(ctx context.Context) (*domain.PendingAuthRequest, error) {
	state, err := randomValue()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	nonce, err := randomValue()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	if err := g.store.Set(ctx, storage.KeyOAuthState, state); err != nil {
		return nil, fmt.Errorf("failed to persist state: %w", err)
	}

	g.log.Debug("Issued OAuth state/nonce pair")

	return &domain.PendingAuthRequest{
		State:     state,
		Nonce:     nonce,
		CreatedAt: time.Now(),
	}, nil
}

// Verify compares the returned state against the persisted one and deletes the
// persisted value regardless of outcome. A missing persisted value fails
// closed, and a second call with the same correct value fails too.
func (g *Guard) Verify(ctx context.Context, returnedState string) bool {
	stored, err := g.store.Get(ctx, storage.KeyOAuthState)

	// Single use: the stored value is consumed whether or not it matches
	if delErr := g.store.Delete(ctx, storage.KeyOAuthState); delErr != nil {
		g.log.WithError(delErr).Warn("Failed to delete consumed OAuth state")
	}

	if err != nil {
		g.log.Debug("State verification failed: no persisted state")
		return false
	}
	if returnedState == "" {
		return false
	}

	ok := subtle.ConstantTimeCompare([]byte(stored), []byte(returnedState)) == 1
	if !ok {
		g.log.Warn("State verification failed: value mismatch")
	}
	return ok
}

// randomValue returns a base64url string carrying entropyBytes of randomness
func randomValue() (string, error) {
	b := make([]byte, entropyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
