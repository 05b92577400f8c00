package chain

import (
	"context"
	"time"
)

// Usage is the token accounting reported by the remote side, when it reports any.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

type Completion struct {
	Text    string
	Usage   Usage
	Elapsed time.Duration
}

// Caller is the single capability the engine depends on: send an ordered list of
// messages plus a configuration and get text back, or fail.
// Implementations must be safe for concurrent use.
type Caller interface {
	Call(ctx context.Context, messages []Message, cfg ChatConfig) (Completion, error)
}

type CallerFunc func(ctx context.Context, messages []Message, cfg ChatConfig) (Completion, error)

func (f CallerFunc) Call(ctx context.Context, messages []Message, cfg ChatConfig) (Completion, error) {
	return f(ctx, messages, cfg)
}
