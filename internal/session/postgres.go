package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fashion-auth/internal/domain"
	"fashion-auth/pkg/errors"
	"fashion-auth/pkg/logger"
)

// PostgresStore calls the session-store SQL functions directly, bypassing
// PostgREST. Used when DATABASE_URL points at the project's Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewPostgresStore connects a pool and verifies it
func NewPostgresStore(ctx context.Context, databaseURL string, log *logger.Logger) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30
	config.ConnConfig.ConnectTimeout = time.Second * 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool, log: log}, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// CreateUserFromGoogle registers or updates the user profile record
func (s *PostgresStore) CreateUserFromGoogle(ctx context.Context, identity *domain.Identity) (string, error) {
	query := `select create_user_from_google($1, $2, $3, $4, $5, $6, $7)`

	var userID string
	err := s.pool.QueryRow(ctx, query,
		identity.ID,
		identity.Email,
		nullable(identity.GivenName),
		nullable(identity.FamilyName),
		nullable(identity.Name),
		nullable(identity.Picture),
		localeOrDefault(identity.Locale),
	).Scan(&userID)
	if err != nil {
		return "", errors.NewSessionStoreError("create_user_from_google failed", err)
	}

	return userID, nil
}

// CreateUserSession issues a session row for the given token
func (s *PostgresStore) CreateUserSession(ctx context.Context, userID, sessionToken, accessToken string, device *domain.DeviceInfo) (string, error) {
	deviceJSON, err := json.Marshal(device)
	if err != nil {
		return "", fmt.Errorf("failed to marshal device info: %w", err)
	}

	query := `select create_user_session($1, $2, $3, $4, $5, $6, $7)`

	var sessionID string
	err = s.pool.QueryRow(ctx, query,
		userID,
		sessionToken,
		nullable(accessToken),
		nil, // refresh token is never held client-side
		nil, // ip address resolved store-side
		device.UserAgent,
		string(deviceJSON),
	).Scan(&sessionID)
	if err != nil {
		return "", errors.NewSessionStoreError("create_user_session failed", err)
	}

	return sessionID, nil
}

// ValidateSession resolves a session token
func (s *PostgresStore) ValidateSession(ctx context.Context, sessionToken string) (*ValidationRow, error) {
	query := `select is_valid, user_id, session_id, needs_refresh from validate_session($1)`

	var row ValidationRow
	err := s.pool.QueryRow(ctx, query, sessionToken).Scan(
		&row.IsValid,
		&row.UserID,
		&row.SessionID,
		&row.NeedsRefresh,
	)
	if err == pgx.ErrNoRows {
		return &ValidationRow{IsValid: false}, nil
	}
	if err != nil {
		return nil, errors.NewSessionStoreError("validate_session failed", err)
	}

	return &row, nil
}

// GetUser loads the user record behind a validated session
func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*domain.SessionUser, error) {
	query := `
		select u.id, u.email, u.google_id, u.last_login, u.is_active,
		       coalesce(p.full_name, ''), coalesce(p.picture_url, '')
		from users u
		left join user_profiles p on p.user_id = u.id
		where u.id = $1
	`

	var user domain.SessionUser
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.Email,
		&user.GoogleID,
		&user.LastLogin,
		&user.IsActive,
		&user.FullName,
		&user.Picture,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NewNotFoundError("User not found")
	}
	if err != nil {
		return nil, errors.NewSessionStoreError("user lookup failed", err)
	}

	return &user, nil
}

// RevokeSession marks the session row inactive
func (s *PostgresStore) RevokeSession(ctx context.Context, sessionToken string) error {
	query := `
		update user_sessions
		set is_active = false, revoked_at = now()
		where session_token = $1
	`

	if _, err := s.pool.Exec(ctx, query, sessionToken); err != nil {
		return errors.NewSessionStoreError("session revoke failed", err)
	}
	return nil
}

// InsertActivity appends to the activity log
func (s *PostgresStore) InsertActivity(ctx context.Context, activity *domain.Activity) error {
	dataJSON, err := json.Marshal(activity.ActivityData)
	if err != nil {
		return fmt.Errorf("failed to marshal activity data: %w", err)
	}

	query := `
		insert into user_activities (user_id, session_id, activity_type, activity_data, user_agent)
		values ($1, $2, $3, $4, $5)
	`

	if _, err := s.pool.Exec(ctx, query,
		activity.UserID,
		activity.SessionID,
		activity.ActivityType,
		string(dataJSON),
		activity.UserAgent,
	); err != nil {
		return errors.NewSessionStoreError("activity insert failed", err)
	}
	return nil
}
