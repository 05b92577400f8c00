package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LL_CONFIG_PATH", "LOG_MODE", "LL_HTTP_ADDR", "LL_ENGINE", "OPENAI_API_KEY", "OPENAI_BASE_URL",
		"OPENAI_MODEL", "OPENAI_TIMEOUT", "LL_CHAIN_MAX_INFLIGHT", "LL_CHAIN_CALL_TIMEOUT",
		"LL_CHAIN_CACHE_TTL", "DATABASE_DSN", "DATABASE_DRIVER", "DATABASE_AUTO_MIGRATE",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "JWT_SECRET_KEY", "JWT_ISSUER",
		"LL_CORS_ORIGINS", "LL_GENERATE_PER_MINUTE",
	} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.Type != "mock" || cfg.Database.Driver != "sqlite" || cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadYAMLWithEnvOverrides(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, "config.yaml", `
env: production
engine:
  type: oai_http
  base_url: https://llm.internal/
  timeout: 45s
chain:
  max_inflight: 8
  call_timeout: 30s
database:
  driver: postgres
  dsn: postgres://u:p@db/ll
`)
	t.Setenv("LL_CONFIG_PATH", p)
	t.Setenv("OPENAI_MODEL", "gpt-4.1")
	t.Setenv("LL_CHAIN_CALL_TIMEOUT", "10s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.IsProd() {
		t.Fatalf("expected production env")
	}
	if cfg.Engine.BaseURL != "https://llm.internal" || cfg.Engine.Timeout.Duration != 45*time.Second {
		t.Fatalf("engine: %+v", cfg.Engine)
	}
	if cfg.Engine.ChatCompletionsPath != "/v1/chat/completions" || cfg.Engine.Model != "gpt-4.1" {
		t.Fatalf("engine defaults/overrides: %+v", cfg.Engine)
	}
	if cfg.Chain.MaxInFlight != 8 || cfg.Chain.CallTimeout.Duration != 10*time.Second {
		t.Fatalf("chain: %+v", cfg.Chain)
	}
	// Unset file keys keep defaults.
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("http addr: %q", cfg.HTTP.Addr)
	}
}

func TestLoadJSONAndTOML(t *testing.T) {
	clearEnv(t)
	t.Setenv("LL_CONFIG_PATH", writeFile(t, "c.json", `{"http":{"addr":":9000","shutdown_timeout":"3s"},"chain":{"cache_ttl":5000000000}}`))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if cfg.HTTP.Addr != ":9000" || cfg.HTTP.ShutdownTimeout.Duration != 3*time.Second || cfg.Chain.CacheTTL.Duration != 5*time.Second {
		t.Fatalf("json config: %+v", cfg)
	}

	t.Setenv("LL_CONFIG_PATH", writeFile(t, "c.toml", "[redis]\naddr = \"cache:6379\"\n[chain]\ncall_timeout = \"2s\"\n"))
	cfg, err = Load()
	if err != nil {
		t.Fatalf("toml: %v", err)
	}
	if cfg.Redis.Addr != "cache:6379" || cfg.Chain.CallTimeout.Duration != 2*time.Second {
		t.Fatalf("toml config: %+v", cfg)
	}
}

func TestAPIKeySelectsHTTPEngine(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.Type != "oai_http" || cfg.Engine.BaseURL != "https://api.openai.com" {
		t.Fatalf("engine: %+v", cfg.Engine)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("LL_ENGINE", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected invalid engine error")
	}
	clearEnv(t)
	t.Setenv("DATABASE_DRIVER", "mysql")
	if _, err := Load(); err == nil {
		t.Fatalf("expected invalid driver error")
	}
}
