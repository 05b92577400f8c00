package chain

import (
	"context"
	"errors"
	"strings"
	"sync"
)

type rule struct {
	contains string
	reply    string
	err      error
}

// scriptedCaller answers by matching the last message against its rules in order.
type scriptedCaller struct {
	mu    sync.Mutex
	rules []rule
	calls [][]Message
	cfgs  []ChatConfig
}

func (s *scriptedCaller) when(contains, reply string) *scriptedCaller {
	s.rules = append(s.rules, rule{contains: contains, reply: reply})
	return s
}

func (s *scriptedCaller) fail(contains string, err error) *scriptedCaller {
	s.rules = append(s.rules, rule{contains: contains, err: err})
	return s
}

func (s *scriptedCaller) Call(ctx context.Context, messages []Message, cfg ChatConfig) (Completion, error) {
	s.mu.Lock()
	s.calls = append(s.calls, append([]Message(nil), messages...))
	s.cfgs = append(s.cfgs, cfg)
	s.mu.Unlock()

	last := messages[len(messages)-1].Content
	for _, r := range s.rules {
		if strings.Contains(last, r.contains) {
			if r.err != nil {
				return Completion{}, r.err
			}
			return Completion{Text: r.reply, Usage: Usage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2}}, nil
		}
	}
	return Completion{}, errors.New("no scripted reply for: " + last)
}

func (s *scriptedCaller) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
