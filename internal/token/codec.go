package token

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"fashion-auth/internal/domain"
	"fashion-auth/pkg/errors"
)

// Decode extracts the identity claims from a Google ID token without checking
// its signature. The web client never held the provider's keys, so the trust
// boundary is the redirect itself; use Verifier for the checked path.
func Decode(raw string) (*domain.Identity, error) {
	if !hasThreeSegments(raw) {
		return nil, errors.NewMalformedTokenError("Token is not a three-part JWT", nil)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, errors.NewMalformedTokenError("Failed to parse ID token", err)
	}

	return identityFromClaims(claims), nil
}

// identityFromClaims maps the standard OIDC claims into an Identity. Missing
// or unexpected claim types stay zero-valued, never error.
func identityFromClaims(claims map[string]interface{}) *domain.Identity {
	return &domain.Identity{
		ID:         getStringClaim(claims, "sub"),
		Email:      getStringClaim(claims, "email"),
		Name:       getStringClaim(claims, "name"),
		Picture:    getStringClaim(claims, "picture"),
		Verified:   getBoolClaim(claims, "email_verified"),
		GivenName:  getStringClaim(claims, "given_name"),
		FamilyName: getStringClaim(claims, "family_name"),
		Locale:     getStringClaim(claims, "locale"),
	}
}

// hasThreeSegments checks the dot-delimited JWT structure
func hasThreeSegments(raw string) bool {
	if raw == "" {
		return false
	}
	return strings.Count(raw, ".") == 2
}

func getStringClaim(m map[string]interface{}, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}

func getBoolClaim(m map[string]interface{}, key string) bool {
	switch val := m[key].(type) {
	case bool:
		return val
	case string:
		// Google's tokeninfo endpoint renders booleans as strings
		return val == "true"
	default:
		return false
	}
}
