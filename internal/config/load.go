package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/learninglab-backend/internal/platform/envutil"
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		return d.UnmarshalText([]byte(u))
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a JSON string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		d.Duration = 0
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dd
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!int" {
		n, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			return err
		}
		d.Duration = time.Duration(n)
		return nil
	}
	return d.UnmarshalText([]byte(node.Value))
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   1 << 20,
			CORSOrigins:       []string{"http://localhost:3000"},
		},
		Engine: EngineConfig{Type: "mock", Model: "gpt-4o"},
		Database: DatabaseConfig{
			Driver:      "sqlite",
			DSN:         "file:learninglab.db?cache=shared",
			AutoMigrate: true,
		},
	}
}

var searchNames = []string{"config.json", "config.yaml", "config.yml", "config.toml"}

// Load reads the config file named by LL_CONFIG_PATH (or the first of
// ./config/config.{json,yaml,yml,toml}), then applies environment overrides.
func Load() (*Config, error) {
	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv("LL_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			for _, name := range searchNames {
				p := filepath.Join(wd, "config", name)
				if _, err := os.Stat(p); err == nil {
					cfgPath = p
					break
				}
			}
		}
	}

	if cfgPath != "" {
		if err := decodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg)
	if err := normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeFile overlays the file onto cfg, so keys missing from the file keep their defaults.
func decodeFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	case ".toml":
		_, err := toml.Decode(string(b), cfg)
		return err
	case ".json", "":
		return json.Unmarshal(b, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)
	cfg.HTTP.Addr = envutil.String("LL_HTTP_ADDR", cfg.HTTP.Addr)
	if v := envutil.String("LL_CORS_ORIGINS", ""); v != "" {
		cfg.HTTP.CORSOrigins = splitList(v)
	}
	cfg.HTTP.GeneratePerMinute = envutil.Int("LL_GENERATE_PER_MINUTE", cfg.HTTP.GeneratePerMinute)

	cfg.Engine.Type = envutil.String("LL_ENGINE", cfg.Engine.Type)
	cfg.Engine.APIKey = envutil.String("OPENAI_API_KEY", cfg.Engine.APIKey)
	cfg.Engine.BaseURL = envutil.String("OPENAI_BASE_URL", cfg.Engine.BaseURL)
	cfg.Engine.Model = envutil.String("OPENAI_MODEL", cfg.Engine.Model)
	cfg.Engine.Timeout.Duration = envutil.Duration("OPENAI_TIMEOUT", cfg.Engine.Timeout.Duration)
	// An API key with no explicit engine means the hosted API.
	if cfg.Engine.APIKey != "" && os.Getenv("LL_ENGINE") == "" && cfg.Engine.Type == "mock" {
		cfg.Engine.Type = "oai_http"
	}

	cfg.Chain.MaxInFlight = envutil.Int("LL_CHAIN_MAX_INFLIGHT", cfg.Chain.MaxInFlight)
	cfg.Chain.CallTimeout.Duration = envutil.Duration("LL_CHAIN_CALL_TIMEOUT", cfg.Chain.CallTimeout.Duration)
	cfg.Chain.CacheTTL.Duration = envutil.Duration("LL_CHAIN_CACHE_TTL", cfg.Chain.CacheTTL.Duration)

	if v := envutil.String("DATABASE_DSN", ""); v != "" {
		cfg.Database.DSN = v
		if strings.HasPrefix(v, "postgres://") || strings.HasPrefix(v, "postgresql://") || strings.Contains(v, "host=") {
			cfg.Database.Driver = "postgres"
		}
	}
	cfg.Database.Driver = envutil.String("DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Database.AutoMigrate = envutil.Bool("DATABASE_AUTO_MIGRATE", cfg.Database.AutoMigrate)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB)

	cfg.Auth.JWTSecret = envutil.String("JWT_SECRET_KEY", cfg.Auth.JWTSecret)
	cfg.Auth.Issuer = envutil.String("JWT_ISSUER", cfg.Auth.Issuer)
}

func normalize(cfg *Config) error {
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = 1 << 20
	}
	if cfg.HTTP.GeneratePerMinute < 0 {
		return errors.New("http.generate_per_minute must not be negative")
	}

	e := &cfg.Engine
	e.Type = strings.ToLower(strings.TrimSpace(e.Type))
	switch e.Type {
	case "", "mock":
		e.Type = "mock"
	case "oai_http", "openai_http", "openai":
		e.Type = "oai_http"
		if e.BaseURL == "" {
			e.BaseURL = "https://api.openai.com"
		}
		e.BaseURL = strings.TrimRight(strings.TrimSpace(e.BaseURL), "/")
		if e.ChatCompletionsPath == "" {
			e.ChatCompletionsPath = "/v1/chat/completions"
		}
		if e.Timeout.Duration <= 0 {
			e.Timeout = Duration{Duration: 120 * time.Second}
		}
	default:
		return fmt.Errorf("invalid engine.type=%q", e.Type)
	}
	if strings.TrimSpace(e.Model) == "" {
		e.Model = "gpt-4o"
	}

	if cfg.Chain.MaxInFlight < 0 {
		return errors.New("chain.max_inflight must not be negative")
	}
	if cfg.Chain.CallTimeout.Duration < 0 {
		return errors.New("chain.call_timeout must not be negative")
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid database.driver=%q", cfg.Database.Driver)
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	return nil
}

// IsProd reports whether the service runs in production mode.
func (c *Config) IsProd() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
