package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/learninglab-backend/internal/config"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

const defaultPrefix = "ll:"

// Client is the small slice of redis the service uses: a string cache with TTLs and
// pub/sub publishing of run events.
type Client struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

func New(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Client{
		log:    log.With("service", "RedisCache"),
		rdb:    rdb,
		prefix: defaultPrefix,
	}, nil
}

func (c *Client) key(k string) string { return c.prefix + k }

// Get returns the cached value and whether it was present.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	if c == nil || c.rdb == nil {
		return "", false, fmt.Errorf("redis cache not initialized")
	}
	v, err := c.rdb.Get(ctx, c.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis cache not initialized")
	}
	return c.rdb.Set(ctx, c.key(key), value, ttl).Err()
}

// Publish JSON-encodes v onto channel.
func (c *Client) Publish(ctx context.Context, channel string, v any) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis cache not initialized")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Publish(ctx, c.key(channel), raw).Err()
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis cache not initialized")
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
