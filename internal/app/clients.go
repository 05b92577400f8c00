package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/learninglab-backend/internal/config"
	"github.com/yungbote/learninglab-backend/internal/inference/engine"
	"github.com/yungbote/learninglab-backend/internal/inference/engine/mock"
	"github.com/yungbote/learninglab-backend/internal/inference/engine/oaihttp"
	"github.com/yungbote/learninglab-backend/internal/inference/port"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
	"github.com/yungbote/learninglab-backend/internal/platform/rediscache"
)

type Clients struct {
	Redis  *rediscache.Client
	Engine engine.Engine
	Caller *port.Caller
}

func wireClients(ctx context.Context, cfg *config.Config, log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var rc *rediscache.Client
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		c, err := rediscache.New(ctx, cfg.Redis, log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		rc = c
	}

	// Engine
	eng, err := newEngine(cfg.Engine)
	if err != nil {
		if rc != nil {
			_ = rc.Close()
		}
		return Clients{}, fmt.Errorf("init engine: %w", err)
	}

	opts := []port.Option{
		port.WithLogger(log),
		port.WithDefaultModel(cfg.Engine.Model),
	}
	if rc != nil {
		opts = append(opts, port.WithCache(rc, cfg.Chain.CacheTTL.Duration))
	}

	return Clients{
		Redis:  rc,
		Engine: eng,
		Caller: port.New(eng, opts...),
	}, nil
}

func newEngine(cfg config.EngineConfig) (engine.Engine, error) {
	switch cfg.Type {
	case "mock":
		return mock.New(), nil
	case "oai_http":
		return oaihttp.New(cfg)
	default:
		return nil, fmt.Errorf("unknown engine type %q", cfg.Type)
	}
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
