package container

import (
	"context"
	"time"

	"fashion-auth/internal/auth"
	"fashion-auth/internal/cache"
	"fashion-auth/internal/chat"
	"fashion-auth/internal/config"
	"fashion-auth/internal/guard"
	"fashion-auth/internal/oauth"
	"fashion-auth/internal/session"
	"fashion-auth/internal/storage"
	"fashion-auth/internal/token"
	"fashion-auth/pkg/logger"
	"fashion-auth/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	RedisClient *redis.Client

	Store     storage.Store
	Navigator *oauth.BrowserlessNavigator
	Flow      *oauth.Flow
	Cache     *cache.IdentityCache
	Sessions  *session.Manager
	Facade    *auth.Facade

	ChatProxy *chat.Proxy
	ChatRNG   *chat.RNG

	postgresStore *session.PostgresStore
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: log}

	// Auth state lives in Redis when configured, in memory otherwise
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, falling back to in-memory state")
		} else {
			c.RedisClient = client
			log.Info("Redis client initialized successfully")
		}
	}
	if c.RedisClient != nil {
		c.Store = storage.NewRedis(c.RedisClient, "default")
	} else {
		c.Store = storage.NewMemory()
	}

	// Session store: direct Postgres when DATABASE_URL is set, PostgREST otherwise
	var sessionStore session.Store
	if cfg.DatabaseURL != "" {
		pg, err := session.NewPostgresStore(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		c.postgresStore = pg
		sessionStore = pg
		log.Info("Session store using direct Postgres connection")
	} else {
		sessionStore = session.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseAnonKey, log)
		log.Info("Session store using Supabase REST endpoint")
	}

	c.Navigator = oauth.NewBrowserlessNavigator(cfg.GoogleRedirectURI)

	stateGuard := guard.New(c.Store, log)

	flowOpts := []oauth.Option{}
	if cfg.GoogleVerifyIDToken {
		flowOpts = append(flowOpts, oauth.WithVerifier(token.NewVerifier(cfg.GoogleClientID)))
		log.Info("ID token signature verification enabled")
	}
	c.Flow = oauth.NewFlow(cfg.GoogleClientID, cfg.GoogleRedirectURI, stateGuard, c.Navigator, log, flowOpts...)

	c.Cache = cache.New(c.Store, log)
	c.Sessions = session.NewManager(sessionStore, c.Store, nil, log)
	c.Facade = auth.New(c.Flow, c.Cache, c.Sessions, log)

	if cfg.ChatUpstreamURL != "" {
		c.ChatProxy = chat.NewProxy(cfg.ChatUpstreamURL, cfg.ChatUpstreamKey, cfg.ChatMaxTokens, log)
	}
	c.ChatRNG = chat.NewRNG(time.Now().UnixNano())

	return c, nil
}

// Close releases held connections and stops background work
func (c *Container) Close() {
	if c.Facade != nil {
		c.Facade.Close()
	}
	if c.postgresStore != nil {
		c.postgresStore.Close()
	}
	if c.RedisClient != nil {
		_ = c.RedisClient.Close()
	}
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// HasRedis returns true if the Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}
