package app

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/learninglab-backend/internal/config"
	"github.com/yungbote/learninglab-backend/internal/http"
	httpH "github.com/yungbote/learninglab-backend/internal/http/handlers"
	httpMW "github.com/yungbote/learninglab-backend/internal/http/middleware"
	"github.com/yungbote/learninglab-backend/internal/observability"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

type Middleware struct {
	Auth            *httpMW.AuthMiddleware
	GenerateLimiter *httpMW.RateLimiter
}

type Handlers struct {
	Health     *httpH.HealthHandler
	CoursePlan *httpH.CoursePlanHandler
	Generation *httpH.GenerationHandler
	Usage      *httpH.UsageHandler
}

func wireHandlers(log *logger.Logger, services Services, checks map[string]httpH.Pinger) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(checks),
		CoursePlan: httpH.NewCoursePlanHandler(log, services.CoursePlan),
		Generation: httpH.NewGenerationHandler(log, services.TeachableItems, services.SkillRubric),
		Usage:      httpH.NewUsageHandler(log, services.Usage),
	}
}

func wireMiddleware(log *logger.Logger, cfg *config.Config, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth:            httpMW.NewAuthMiddleware(log, services.Auth),
		GenerateLimiter: httpMW.NewRateLimiter(cfg.HTTP.GeneratePerMinute),
	}
}

func routerConfig(log *logger.Logger, metrics *observability.Metrics, handlers Handlers, middleware Middleware) http.RouterConfig {
	return http.RouterConfig{
		ServiceName:       serviceName,
		Log:               log,
		Metrics:           metrics,
		AuthMiddleware:    middleware.Auth,
		GenerateLimiter:   middleware.GenerateLimiter,
		HealthHandler:     handlers.Health,
		CoursePlanHandler: handlers.CoursePlan,
		GenerationHandler: handlers.Generation,
		UsageHandler:      handlers.Usage,
	}
}

func healthChecks(d *gorm.DB, clients Clients) map[string]httpH.Pinger {
	checks := map[string]httpH.Pinger{
		"database": func(ctx context.Context) error {
			sqlDB, err := d.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if clients.Redis != nil {
		checks["redis"] = clients.Redis.Ping
	}
	return checks
}
