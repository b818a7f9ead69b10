package redis

import (
	"testing"
)

func TestKeyBuilder_Environment_Prefixes(t *testing.T) {
	tests := []struct {
		name           string
		environment    string
		expectedPrefix string
	}{
		{
			name:           "Production environment should use prod prefix",
			environment:    "production",
			expectedPrefix: "prod",
		},
		{
			name:           "Development environment should use staging prefix",
			environment:    "development",
			expectedPrefix: "staging",
		},
		{
			name:           "Staging environment should use staging prefix",
			environment:    "staging",
			expectedPrefix: "staging",
		},
		{
			name:           "Test environment should use staging prefix",
			environment:    "test",
			expectedPrefix: "staging",
		},
		{
			name:           "Unknown environment should default to prod prefix",
			environment:    "unknown",
			expectedPrefix: "prod",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := NewKeyBuilder(tt.environment)
			if kb.GetPrefix() != tt.expectedPrefix {
				t.Errorf("NewKeyBuilder(%s).GetPrefix() = %s, want %s",
					tt.environment, kb.GetPrefix(), tt.expectedPrefix)
			}
		})
	}
}

func TestKeyBuilder_KeyGeneration(t *testing.T) {
	kb := NewKeyBuilder("production")

	tests := []struct {
		name     string
		method   func() string
		expected string
	}{
		{
			name:     "AuthState session token key",
			method:   func() string { return kb.KeyAuthState("client-1", "session_token") },
			expected: "prod:auth:client-1:session_token",
		},
		{
			name:     "AuthState user data key",
			method:   func() string { return kb.KeyAuthState("client-1", "user_data") },
			expected: "prod:auth:client-1:user_data",
		},
		{
			name:     "Custom key pattern",
			method:   func() string { return kb.KeyCustom("chat:%s:history", "client-1") },
			expected: "prod:chat:client-1:history",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.method()
			if result != tt.expected {
				t.Errorf("%s = %s, want %s", tt.name, result, tt.expected)
			}
		})
	}
}

func TestKeyBuilder_EnvironmentSeparation(t *testing.T) {
	prodKB := NewKeyBuilder("production")
	stagingKB := NewKeyBuilder("development")

	prodKey := prodKB.KeyAuthState("client-1", "oauth_state")
	stagingKey := stagingKB.KeyAuthState("client-1", "oauth_state")

	if prodKey == stagingKey {
		t.Errorf("Production and staging keys should be different. Got: prod=%s, staging=%s",
			prodKey, stagingKey)
	}

	expectedProd := "prod:auth:client-1:oauth_state"
	expectedStaging := "staging:auth:client-1:oauth_state"

	if prodKey != expectedProd {
		t.Errorf("Production key = %s, want %s", prodKey, expectedProd)
	}

	if stagingKey != expectedStaging {
		t.Errorf("Staging key = %s, want %s", stagingKey, expectedStaging)
	}
}
