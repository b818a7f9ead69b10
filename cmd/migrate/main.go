package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	// Get command
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go [drop|up|functions]")
		os.Exit(1)
	}

	command := os.Args[1]

	// Connect to database
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		if err := createFunctions(ctx, conn); err != nil {
			log.Fatalf("Failed to create functions: %v", err)
		}
		fmt.Println("✅ Schema created successfully")

	case "functions":
		if err := createFunctions(ctx, conn); err != nil {
			log.Fatalf("Failed to create functions: %v", err)
		}
		fmt.Println("✅ Functions created successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Usage: go run main.go [drop|up|functions]")
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP FUNCTION IF EXISTS validate_session(VARCHAR)`,
		`DROP FUNCTION IF EXISTS create_user_session(UUID, VARCHAR, TEXT, TEXT, INET, TEXT, JSONB)`,
		`DROP FUNCTION IF EXISTS create_user_from_google(VARCHAR, VARCHAR, VARCHAR, VARCHAR, VARCHAR, TEXT, VARCHAR)`,
		`DROP TABLE IF EXISTS user_activities CASCADE`,
		`DROP TABLE IF EXISTS user_sessions CASCADE`,
		`DROP TABLE IF EXISTS user_profiles CASCADE`,
		`DROP TABLE IF EXISTS users CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", truncateQuery(query))
	}

	return nil
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		// Core user record keyed by the Google subject
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			google_id VARCHAR(255) UNIQUE NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			last_login TIMESTAMP DEFAULT NOW(),
			is_active BOOLEAN DEFAULT true,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		// Display profile, one row per user
		`CREATE TABLE IF NOT EXISTS user_profiles (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			given_name VARCHAR(255),
			family_name VARCHAR(255),
			full_name VARCHAR(255),
			picture_url TEXT,
			locale VARCHAR(10) DEFAULT 'en',
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		// Opaque session tokens with a 30-day expiry
		`CREATE TABLE IF NOT EXISTS user_sessions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			session_token VARCHAR(255) UNIQUE NOT NULL,
			google_access_token TEXT,
			google_refresh_token TEXT,
			ip_address INET,
			user_agent TEXT,
			device_info JSONB,
			is_active BOOLEAN DEFAULT true,
			expires_at TIMESTAMP DEFAULT NOW() + INTERVAL '30 days',
			revoked_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT NOW(),
			last_used_at TIMESTAMP DEFAULT NOW()
		)`,

		// Fire-and-forget activity log
		`CREATE TABLE IF NOT EXISTS user_activities (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			session_id UUID REFERENCES user_sessions(id) ON DELETE SET NULL,
			activity_type VARCHAR(50) NOT NULL,
			activity_data JSONB,
			user_agent TEXT,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		// Create indexes
		`CREATE INDEX IF NOT EXISTS idx_users_google_id ON users(google_id)`,
		`CREATE INDEX IF NOT EXISTS idx_user_sessions_token ON user_sessions(session_token)`,
		`CREATE INDEX IF NOT EXISTS idx_user_sessions_user_id ON user_sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_user_activities_user_id ON user_activities(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_user_activities_created_at ON user_activities(created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
		fmt.Printf("  Created: %s\n", truncateQuery(query))
	}

	return nil
}

func createFunctions(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		// Upsert on the Google subject: returns the user id either way and
		// refreshes the profile with whatever the token carried this time
		`CREATE OR REPLACE FUNCTION create_user_from_google(
			p_google_id VARCHAR,
			p_email VARCHAR,
			p_given_name VARCHAR DEFAULT NULL,
			p_family_name VARCHAR DEFAULT NULL,
			p_full_name VARCHAR DEFAULT NULL,
			p_picture_url TEXT DEFAULT NULL,
			p_locale VARCHAR DEFAULT 'en'
		) RETURNS UUID AS $$
		DECLARE
			v_user_id UUID;
		BEGIN
			INSERT INTO users (google_id, email, last_login)
			VALUES (p_google_id, p_email, NOW())
			ON CONFLICT (google_id) DO UPDATE SET
				email = EXCLUDED.email,
				last_login = NOW(),
				updated_at = NOW()
			RETURNING id INTO v_user_id;

			INSERT INTO user_profiles (user_id, given_name, family_name, full_name, picture_url, locale)
			VALUES (v_user_id, p_given_name, p_family_name, p_full_name, p_picture_url, p_locale)
			ON CONFLICT (user_id) DO UPDATE SET
				given_name = EXCLUDED.given_name,
				family_name = EXCLUDED.family_name,
				full_name = EXCLUDED.full_name,
				picture_url = EXCLUDED.picture_url,
				locale = EXCLUDED.locale,
				updated_at = NOW();

			RETURN v_user_id;
		END;
		$$ LANGUAGE plpgsql`,

		`CREATE OR REPLACE FUNCTION create_user_session(
			p_user_id UUID,
			p_session_token VARCHAR,
			p_google_access_token TEXT DEFAULT NULL,
			p_google_refresh_token TEXT DEFAULT NULL,
			p_ip_address INET DEFAULT NULL,
			p_user_agent TEXT DEFAULT NULL,
			p_device_info JSONB DEFAULT NULL
		) RETURNS UUID AS $$
		DECLARE
			v_session_id UUID;
		BEGIN
			INSERT INTO user_sessions (
				user_id, session_token, google_access_token, google_refresh_token,
				ip_address, user_agent, device_info
			)
			VALUES (
				p_user_id, p_session_token, p_google_access_token, p_google_refresh_token,
				p_ip_address, p_user_agent, p_device_info
			)
			RETURNING id INTO v_session_id;

			RETURN v_session_id;
		END;
		$$ LANGUAGE plpgsql`,

		// Touches last_used_at on a hit; a session nearing expiry reports
		// needs_refresh so the client can renew proactively
		`CREATE OR REPLACE FUNCTION validate_session(
			p_session_token VARCHAR
		) RETURNS TABLE (
			is_valid BOOLEAN,
			user_id UUID,
			session_id UUID,
			needs_refresh BOOLEAN
		) AS $$
		BEGIN
			UPDATE user_sessions s
			SET last_used_at = NOW()
			WHERE s.session_token = p_session_token
				AND s.is_active = true
				AND s.expires_at > NOW();

			RETURN QUERY
			SELECT
				true,
				s.user_id,
				s.id,
				s.expires_at < NOW() + INTERVAL '7 days'
			FROM user_sessions s
			WHERE s.session_token = p_session_token
				AND s.is_active = true
				AND s.expires_at > NOW();
		END;
		$$ LANGUAGE plpgsql`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
		fmt.Printf("  Created: %s\n", truncateQuery(query))
	}

	return nil
}

func truncateQuery(query string) string {
	if len(query) > 50 {
		return query[:50] + "..."
	}
	return query
}
