package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/learninglab-backend/internal/config"
	"github.com/yungbote/learninglab-backend/internal/observability"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
	"github.com/yungbote/learninglab-backend/internal/services"
)

const devJWTSecret = "defaultsecret"

type Services struct {
	Runner         *services.ChainRunner
	Auth           services.AuthService
	CoursePlan     services.CoursePlanService
	TeachableItems services.TeachableItemService
	SkillRubric    services.SkillRubricService
	Usage          services.UsageService
}

func wireServices(cfg *config.Config, log *logger.Logger, clients Clients, reposet Repos, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	secret, err := JWTSecret(cfg, log)
	if err != nil {
		return Services{}, err
	}
	auth, err := services.NewAuthService(log, secret, cfg.Auth.Issuer)
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}

	runnerOpts := []services.RunnerOption{
		services.WithMaxInFlight(cfg.Chain.MaxInFlight),
		services.WithCallTimeout(cfg.Chain.CallTimeout.Duration),
		services.WithMetrics(metrics),
	}
	if clients.Redis != nil {
		runnerOpts = append(runnerOpts, services.WithEvents(clients.Redis))
	}
	runner := services.NewChainRunner(clients.Caller, reposet.CallLog, log, runnerOpts...)

	return Services{
		Runner:         runner,
		Auth:           auth,
		CoursePlan:     services.NewCoursePlanService(reposet.CoursePlan, runner, log),
		TeachableItems: services.NewTeachableItemService(runner, log),
		SkillRubric:    services.NewSkillRubricService(runner, log),
		Usage:          services.NewUsageService(reposet.CallLog, log),
	}, nil
}

// JWTSecret returns the signing secret, falling back to a fixed development value
// outside production.
func JWTSecret(cfg *config.Config, log *logger.Logger) (string, error) {
	secret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if secret != "" {
		return secret, nil
	}
	if cfg.IsProd() {
		return "", fmt.Errorf("JWT_SECRET_KEY is required in production")
	}
	log.Warn("JWT_SECRET_KEY not set; using development secret")
	return devJWTSecret, nil
}
