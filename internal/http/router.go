package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/learninglab-backend/internal/http/handlers"
	httpMW "github.com/yungbote/learninglab-backend/internal/http/middleware"
	"github.com/yungbote/learninglab-backend/internal/observability"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

type RouterConfig struct {
	ServiceName string
	Log         *logger.Logger
	Metrics     *observability.Metrics

	CORSOrigins     []string
	MaxRequestBytes int64

	AuthMiddleware *httpMW.AuthMiddleware
	// GenerateLimiter throttles the endpoints that spend model tokens. Nil disables it.
	GenerateLimiter *httpMW.RateLimiter

	HealthHandler     *httpH.HealthHandler
	CoursePlanHandler *httpH.CoursePlanHandler
	GenerationHandler *httpH.GenerationHandler
	UsageHandler      *httpH.UsageHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "learninglab"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	if cfg.Metrics != nil {
		r.Use(httpMW.Metrics(cfg.Metrics))
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	api := r.Group("/api")
	api.Use(httpMW.BodyLimit(cfg.MaxRequestBytes))

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		generate := protected.Group("/")
		if cfg.GenerateLimiter != nil {
			generate.Use(cfg.GenerateLimiter.Middleware())
		}

		// Course plans
		if cfg.CoursePlanHandler != nil {
			protected.POST("/course-plans", cfg.CoursePlanHandler.Create)
			protected.GET("/course-plans", cfg.CoursePlanHandler.List)
			protected.GET("/course-plans/:id", cfg.CoursePlanHandler.Get)
			protected.PATCH("/course-plans/:id", cfg.CoursePlanHandler.Update)
			generate.POST("/course-plans/:id/generate", cfg.CoursePlanHandler.Generate)
			generate.POST("/generate-course-plan", cfg.CoursePlanHandler.GenerateLegacy)
		}

		// Profile-driven generators
		if cfg.GenerationHandler != nil {
			generate.POST("/teachable-items", cfg.GenerationHandler.TeachableItems)
			generate.POST("/skill-rubrics", cfg.GenerationHandler.SkillRubric)
		}

		// Usage and call ledger
		if cfg.UsageHandler != nil {
			protected.GET("/usage", cfg.UsageHandler.Summary)
			protected.GET("/runs/:id/calls", cfg.UsageHandler.RunCalls)
		}
	}

	return r
}
