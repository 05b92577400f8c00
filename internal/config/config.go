package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr" yaml:"addr" toml:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout" yaml:"read_header_timeout" toml:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout" yaml:"idle_timeout" toml:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	MaxRequestBytes   int64    `json:"max_request_bytes" yaml:"max_request_bytes" toml:"max_request_bytes"`
	CORSOrigins       []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty" toml:"cors_origins,omitempty"`

	// GeneratePerMinute throttles the generate endpoints per user. 0 disables throttling.
	GeneratePerMinute int `json:"generate_per_minute,omitempty" yaml:"generate_per_minute,omitempty" toml:"generate_per_minute,omitempty"`
}

type EngineConfig struct {
	// Type is "mock" or "oai_http".
	Type string `json:"type" yaml:"type" toml:"type"`

	BaseURL             string   `json:"base_url,omitempty" yaml:"base_url,omitempty" toml:"base_url,omitempty"`
	APIKey              string   `json:"api_key,omitempty" yaml:"api_key,omitempty" toml:"api_key,omitempty"`
	ChatCompletionsPath string   `json:"chat_completions_path,omitempty" yaml:"chat_completions_path,omitempty" toml:"chat_completions_path,omitempty"`
	Timeout             Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty"`

	// Model is the default model for chains that do not name one.
	Model string `json:"model,omitempty" yaml:"model,omitempty" toml:"model,omitempty"`
}

type ChainConfig struct {
	MaxInFlight int      `json:"max_inflight,omitempty" yaml:"max_inflight,omitempty" toml:"max_inflight,omitempty"`
	CallTimeout Duration `json:"call_timeout,omitempty" yaml:"call_timeout,omitempty" toml:"call_timeout,omitempty"`

	// CacheTTL enables the redis completion cache when positive and redis is configured.
	CacheTTL Duration `json:"cache_ttl,omitempty" yaml:"cache_ttl,omitempty" toml:"cache_ttl,omitempty"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver      string `json:"driver" yaml:"driver" toml:"driver"`
	DSN         string `json:"dsn" yaml:"dsn" toml:"dsn"`
	AutoMigrate bool   `json:"auto_migrate" yaml:"auto_migrate" toml:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty" toml:"addr,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty" toml:"password,omitempty"`
	DB       int    `json:"db,omitempty" yaml:"db,omitempty" toml:"db,omitempty"`
}

type AuthConfig struct {
	JWTSecret string `json:"jwt_secret,omitempty" yaml:"jwt_secret,omitempty" toml:"jwt_secret,omitempty"`
	Issuer    string `json:"issuer,omitempty" yaml:"issuer,omitempty" toml:"issuer,omitempty"`
}

type Config struct {
	Env      string         `json:"env" yaml:"env" toml:"env"`
	HTTP     HTTPConfig     `json:"http" yaml:"http" toml:"http"`
	Engine   EngineConfig   `json:"engine" yaml:"engine" toml:"engine"`
	Chain    ChainConfig    `json:"chain" yaml:"chain" toml:"chain"`
	Database DatabaseConfig `json:"database" yaml:"database" toml:"database"`
	Redis    RedisConfig    `json:"redis" yaml:"redis" toml:"redis"`
	Auth     AuthConfig     `json:"auth" yaml:"auth" toml:"auth"`
}
