package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/learninglab-backend/internal/config"
	"github.com/yungbote/learninglab-backend/internal/data/db"
	"github.com/yungbote/learninglab-backend/internal/http"
	"github.com/yungbote/learninglab-backend/internal/observability"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

const serviceName = "learninglab"

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      *config.Config
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *http.Server
	Metrics  *observability.Metrics

	otelShutdown func(context.Context) error
}

// New wires every layer from cfg. The caller owns the returned App and must Close it.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: cfg.Env,
	})
	metrics := observability.Init(log)

	theDB, err := db.Open(cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	clients, err := wireClients(ctx, cfg, log)
	if err != nil {
		closeDB(theDB)
		return nil, err
	}

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(cfg, log, clients, reposet, metrics)
	if err != nil {
		clients.Close()
		closeDB(theDB)
		return nil, err
	}

	handlerset := wireHandlers(log, serviceset, healthChecks(theDB, clients))
	middleware := wireMiddleware(log, cfg, serviceset)
	server := http.NewServer(cfg.HTTP, routerConfig(log, metrics, handlerset, middleware))

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Server:       server,
		Metrics:      metrics,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Server listening", "addr", a.Cfg.HTTP.Addr, "engine", a.Cfg.Engine.Type)
	return a.Server.Run(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.DB != nil {
		closeDB(a.DB)
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

func closeDB(d *gorm.DB) {
	if sqlDB, err := d.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
