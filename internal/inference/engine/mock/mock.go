package mock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/yungbote/learninglab-backend/internal/inference/engine"
)

type rule struct {
	contains string
	reply    string
	err      error
}

// Call is one recorded Generate invocation.
type Call struct {
	Model    string
	Messages []engine.Message
	Opts     engine.GenerateOptions
}

// Engine is a deterministic engine for tests and local runs. Scripted rules match the
// last message by substring, first match wins; unmatched prompts echo the last user
// message.
type Engine struct {
	mu    sync.Mutex
	rules []rule
	calls []Call
}

func New() *Engine {
	return &Engine{}
}

// When answers reply to any prompt whose last message contains substr.
func (e *Engine) When(substr, reply string) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule{contains: substr, reply: reply})
	return e
}

// Fail makes prompts whose last message contains substr fail with err.
func (e *Engine) Fail(substr string, err error) *Engine {
	if err == nil {
		err = errors.New("mock failure")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule{contains: substr, err: err})
	return e
}

func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

func (e *Engine) Generate(ctx context.Context, model string, messages []engine.Message, opts engine.GenerateOptions) (engine.Generation, error) {
	if err := ctx.Err(); err != nil {
		return engine.Generation{}, err
	}
	if len(messages) == 0 {
		return engine.Generation{}, errors.New("no messages")
	}

	e.mu.Lock()
	e.calls = append(e.calls, Call{Model: model, Messages: append([]engine.Message(nil), messages...), Opts: opts})
	rules := e.rules
	e.mu.Unlock()

	last := messages[len(messages)-1].Content
	for _, r := range rules {
		if !strings.Contains(last, r.contains) {
			continue
		}
		if r.err != nil {
			return engine.Generation{}, r.err
		}
		return generation(last, r.reply), nil
	}

	if opts.JSONObject {
		return generation(last, `{"ok":true}`), nil
	}
	var user string
	for i := len(messages) - 1; i >= 0; i-- {
		if strings.EqualFold(messages[i].Role, "user") {
			user = messages[i].Content
			break
		}
	}
	if strings.TrimSpace(user) == "" {
		return generation(last, "mock: ok"), nil
	}
	return generation(last, fmt.Sprintf("mock: %s", user)), nil
}

// generation reports whitespace-separated word counts as token usage.
func generation(prompt, reply string) engine.Generation {
	p, c := len(strings.Fields(prompt)), len(strings.Fields(reply))
	return engine.Generation{
		Text:         reply,
		Usage:        engine.Usage{PromptTokens: p, CompletionTokens: c, TotalTokens: p + c},
		FinishReason: "stop",
	}
}
