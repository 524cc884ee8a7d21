package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/lyzr/obe/cmd/obed/handlers"
	"github.com/lyzr/obe/cmd/obed/routes"
	"github.com/lyzr/obe/common/bootstrap"
	"github.com/lyzr/obe/internal/obe/batch"
	"github.com/lyzr/obe/internal/obe/checkpoint"
	"github.com/lyzr/obe/internal/obe/executor"
	"github.com/lyzr/obe/internal/obe/host"
	"github.com/lyzr/obe/internal/obe/modal"
)

func main() {
	ctx := context.Background()

	components, err := bootstrap.Setup(ctx, "obed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to bootstrap obed: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	exec, err := buildExecutor(components)
	if err != nil {
		components.Logger.Error("failed to build executor", "error", err)
		os.Exit(1)
	}

	e := setupEcho()
	setupMiddleware(e)
	setupHealthCheck(e)
	routes.RegisterRPCRoutes(e, handlers.NewRPCHandler(exec))

	startServer(e, components)
}

// buildExecutor wires the executor core against an in-memory reference
// host. A real deployment replaces host.NewFake() with an adapter onto the
// host application's own document API; that adapter is out of this
// repository's scope.
func buildExecutor(c *bootstrap.Components) (*executor.Executor, error) {
	h := host.NewFake()

	opts := executor.Options{
		Log: c.Logger,
		Modal: batch.ModalDefaults{
			MaxRetries: c.Config.Modal.MaxRetries,
			RetryDelay: c.Config.Modal.RetryDelay,
			Timeout:    c.Config.Modal.Timeout,
		},
	}

	switch c.Config.Checkpoint.Store {
	case "postgres":
		if c.DB == nil {
			return nil, fmt.Errorf("checkpoint store is postgres but no database connection was initialized")
		}
		opts.Checkpoints = checkpoint.New(h, checkpoint.NewPostgresStore(c.DB))
	case "redis":
		if c.Redis == nil {
			return nil, fmt.Errorf("checkpoint store is redis but no redis connection was initialized")
		}
		opts.Checkpoints = checkpoint.New(h, checkpoint.NewRedisStore(c.Redis, 0))
	}

	if c.Config.Modal.Distributed {
		if c.Redis == nil {
			return nil, fmt.Errorf("modal coordinator is distributed but no redis connection was initialized")
		}
		opts.Coordinator = modal.NewRedisCoordinator(c.Redis, h, c.Config.Redis.LockTTL)
	}

	return executor.New(h, opts)
}

func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
}

func setupHealthCheck(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "obed"})
	})
}

func startServer(e *echo.Echo, c *bootstrap.Components) {
	port := c.Config.Service.Port
	c.Logger.Info("starting obed", "port", port)
	if err := e.Start(fmt.Sprintf(":%d", port)); err != nil {
		c.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
