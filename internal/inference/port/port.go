// Package port adapts an inference engine to the chain's remote-call capability.
package port

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/yungbote/learninglab-backend/internal/chain"
	"github.com/yungbote/learninglab-backend/internal/inference/engine"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

// Store is a string cache with expiry; rediscache.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Caller implements chain.Caller on top of an engine.Engine.
type Caller struct {
	eng          engine.Engine
	log          *logger.Logger
	defaultModel string
	cache        Store
	cacheTTL     time.Duration
}

var _ chain.Caller = (*Caller)(nil)

type Option func(*Caller)

func WithLogger(log *logger.Logger) Option {
	return func(c *Caller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithDefaultModel is used when a step's configuration names no model.
func WithDefaultModel(model string) Option {
	return func(c *Caller) { c.defaultModel = strings.TrimSpace(model) }
}

// WithCache serves identical prompts from store for ttl. ttl <= 0 disables caching.
func WithCache(store Store, ttl time.Duration) Option {
	return func(c *Caller) {
		if store != nil && ttl > 0 {
			c.cache, c.cacheTTL = store, ttl
		}
	}
}

func New(eng engine.Engine, opts ...Option) *Caller {
	c := &Caller{eng: eng, log: logger.Nop(), defaultModel: "gpt-4o"}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Caller) Call(ctx context.Context, messages []chain.Message, cfg chain.ChatConfig) (chain.Completion, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = c.defaultModel
	}
	msgs := toEngineMessages(messages)
	opts := toGenerateOptions(cfg)

	var key string
	if c.cache != nil {
		key = cacheKey(model, msgs, opts)
		if text, ok, err := c.cache.Get(ctx, key); err != nil {
			c.log.Warn("completion cache read failed", "error", err)
		} else if ok {
			c.log.Debug("completion cache hit", "model", model)
			return chain.Completion{Text: text}, nil
		}
	}

	done := llmTimer(c.log.WithContext(ctx), "chat_completion", map[string]any{"model": model, "messages": len(msgs)})
	start := time.Now()
	gen, err := c.eng.Generate(ctx, model, msgs, opts)
	done(err)
	if err != nil {
		return chain.Completion{}, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, gen.Text, c.cacheTTL); err != nil {
			c.log.Warn("completion cache write failed", "error", err)
		}
	}

	return chain.Completion{
		Text: gen.Text,
		Usage: chain.Usage{
			PromptTokens:     gen.Usage.PromptTokens,
			CompletionTokens: gen.Usage.CompletionTokens,
			TotalTokens:      gen.Usage.TotalTokens,
		},
		Elapsed: time.Since(start),
	}, nil
}

func toEngineMessages(messages []chain.Message) []engine.Message {
	out := make([]engine.Message, len(messages))
	for i, m := range messages {
		out[i] = engine.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}

func toGenerateOptions(cfg chain.ChatConfig) engine.GenerateOptions {
	opts := engine.GenerateOptions{
		MaxTokens:        cfg.MaxTokens,
		Temperature:      cfg.Temperature,
		TopP:             cfg.TopP,
		PresencePenalty:  cfg.PresencePenalty,
		FrequencyPenalty: cfg.FrequencyPenalty,
	}
	for _, f := range cfg.Functions {
		opts.Functions = append(opts.Functions, engine.Function{Name: f.Name, Description: f.Description, Parameters: f.Parameters})
	}
	return opts
}

// cacheKey hashes everything that can change the completion.
func cacheKey(model string, msgs []engine.Message, opts engine.GenerateOptions) string {
	raw, _ := json.Marshal(struct {
		Model    string
		Messages []engine.Message
		Opts     engine.GenerateOptions
	}{model, msgs, opts})
	sum := sha256.Sum256(raw)
	return "completion:" + hex.EncodeToString(sum[:])
}

func llmTimer(log *logger.Logger, name string, fields map[string]any) func(error) {
	start := time.Now()
	return func(err error) {
		if log == nil {
			return
		}
		kv := make([]any, 0, 4+len(fields)*2+2)
		kv = append(kv, "llm_call", name, "elapsed_ms", time.Since(start).Milliseconds())
		for k, v := range fields {
			kv = append(kv, k, v)
		}
		if err != nil {
			kv = append(kv, "error", err.Error())
			log.Warn("llm call finished", kv...)
			return
		}
		log.Info("llm call finished", kv...)
	}
}
