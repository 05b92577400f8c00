package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learninglab-backend/internal/config"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:  "test",
		HTTP: config.HTTPConfig{Addr: ":0", MaxRequestBytes: 1 << 20},
		Engine: config.EngineConfig{
			Type:  "mock",
			Model: "gpt-4o",
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         "file:apptest?mode=memory&cache=shared",
			AutoMigrate: true,
		},
	}
}

func TestNewWiresServer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, err := New(context.Background(), testConfig(), logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	for _, path := range []string{"/healthcheck", "/readyz"} {
		w := httptest.NewRecorder()
		a.Server.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d %s", path, w.Code, w.Body.String())
		}
	}
	if a.Services.Runner == nil || a.Clients.Caller == nil {
		t.Fatalf("expected runner and caller to be wired")
	}
}

func TestProductionRequiresJWTSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"
	cfg.Database.DSN = "file:apptestprod?mode=memory&cache=shared"
	if _, err := New(context.Background(), cfg, logger.Nop()); err == nil {
		t.Fatalf("expected error without a JWT secret in production")
	}
}

func TestUnknownEngineFails(t *testing.T) {
	if _, err := newEngine(config.EngineConfig{Type: "carrier-pigeon"}); err == nil {
		t.Fatalf("expected error for unknown engine")
	}
}
