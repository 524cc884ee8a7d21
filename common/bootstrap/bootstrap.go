package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lyzr/obe/common/config"
	"github.com/lyzr/obe/common/db"
	"github.com/lyzr/obe/common/logger"
	obredis "github.com/lyzr/obe/common/redis"
)

// Setup initializes all service components. This is the entry point for
// cmd/obed and for tests that want a real (non-fake) dependency set.
//
// By default neither the database nor Redis is connected: the in-process
// modal coordinator and the in-memory checkpoint store need neither. Pass
// nothing extra and Setup will open a connection automatically when the
// loaded config selects a "postgres" or "redis" checkpoint store, or a
// distributed modal coordinator.
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", components.Config.Service.Environment,
	)

	needsDB := components.Config.Checkpoint.Store == "postgres"
	if !options.skipDB && needsDB {
		components.Logger.Info("connecting to database")
		components.DB, err = db.New(ctx, components.Config, components.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing database connection")
			components.DB.Close()
			return nil
		})

		if options.dbInitHook != nil {
			components.Logger.Info("running database init hook")
			if err := options.dbInitHook(components.DB); err != nil {
				components.Shutdown(ctx)
				return nil, fmt.Errorf("database init hook failed: %w", err)
			}
		}
	}

	needsRedis := components.Config.Checkpoint.Store == "redis" || components.Config.Modal.Distributed
	if !options.skipRedis && needsRedis {
		components.Logger.Info("connecting to redis", "url", components.Config.Redis.URL)
		opt, err := redis.ParseURL(components.Config.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rc := redis.NewClient(opt)
		if err := rc.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		components.Redis = obredis.NewClient(rc, components.Logger)

		components.addCleanup(func() error {
			components.Logger.Info("closing redis connection")
			return rc.Close()
		})
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"db", components.DB != nil,
		"redis", components.Redis != nil,
	)

	return components, nil
}

// MustSetup is like Setup but panics on error.
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}
