package di

import (
	"context"

	"kujisan/application/ports"
	"kujisan/application/services"
	"kujisan/infrastructure/config"
	"kujisan/pkg/errors"
	"kujisan/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	ErrorHandler   *errors.ErrorHandler
	Metrics        *observability.Collector
	TracerProvider *observability.TracerProvider
	Source         BranchSource
	Fetcher        ports.BranchFetcher
	Directory      ports.DirectoryReader
	HealthCheckers HealthCheckers
	Publisher      ports.EventPublisher
	LayoutService  *services.LayoutService
	ConfigWatcher  *config.Watcher
	Sessions       *services.SessionService
}

// Start launches background watchers
func (c *Container) Start() {
	if c.ConfigWatcher != nil {
		c.ConfigWatcher.Start()
	}
}

// Shutdown stops background work and flushes telemetry
func (c *Container) Shutdown(ctx context.Context) {
	if c.ConfigWatcher != nil {
		c.ConfigWatcher.Stop()
	}
	if c.Sessions != nil {
		c.Sessions.Stop()
	}
	if err := c.TracerProvider.Shutdown(ctx); err != nil {
		c.Logger.Error("Failed to shut down tracer provider", zap.Error(err))
	}
	_ = c.Logger.Sync()
}
