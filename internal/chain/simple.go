package chain

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// SimpleStep performs exactly one remote call and stores the parsed completion.
type SimpleStep[T any] struct {
	name      string
	templates []template
	history   int // 0: none, <0: all, n: last n user/assistant pairs
	parser    Parser[T]
	label     Label[T]
	overrides []ConfigOption
}

func (s *SimpleStep[T]) Name() string { return s.name }
func (s *SimpleStep[T]) Output() Key  { return s.label.Key() }

// Config returns the configuration the step would use under base.
func (s *SimpleStep[T]) Config(base ChatConfig) ChatConfig {
	return base.With(s.overrides...)
}

func (s *SimpleStep[T]) Run(ctx context.Context, in Context, env *Env) Context {
	key := s.label.Key()
	ctx, span := env.startSpan(ctx, "simple", s.name, key)
	defer span.End()
	done := env.stepTimer(span, s.name, key)

	prompt := s.render(in)
	cfg := s.Config(in.Config())

	comp, err := env.call(ctx, prompt, cfg)
	if err != nil {
		se := newStepError(ErrTransport, s.name, key, err)
		env.ledger.Append(failure(prompt, cfg, se))
		done(se)
		return in
	}

	v, err := s.parse(comp.Text)
	if err != nil {
		se := newStepError(ErrParse, s.name, key, err)
		env.ledger.Append(failure(prompt, cfg, se))
		done(se)
		return in
	}

	out := in.appendHistory(
		Message{Role: RoleUser, Content: s.lastUserContent(prompt)},
		Message{Role: RoleAssistant, Content: comp.Text},
	).plus(key, v)
	env.ledger.Append(success(key, s.name, prompt, cfg, comp))
	done(nil)
	return out
}

// render builds the outbound message list: the requested tail of history, then the
// step's own templates resolved against in.
func (s *SimpleStep[T]) render(in Context) []Message {
	var prompt []Message
	if s.history != 0 {
		hist := in.history
		if s.history > 0 {
			keep := s.history * 2
			if len(hist) > keep {
				hist = hist[len(hist)-keep:]
			}
		}
		prompt = make([]Message, 0, len(hist)+len(s.templates))
		prompt = append(prompt, hist...)
	} else {
		prompt = make([]Message, 0, len(s.templates))
	}

	var vars map[string]string
	for _, t := range s.templates {
		text := t.text
		if strings.Contains(text, "${") {
			if vars == nil {
				vars = Stringify(in)
			}
			text = ResolveMap(text, vars)
		}
		prompt = append(prompt, Message{Role: t.role, Content: text})
	}
	return prompt
}

// lastUserContent picks the step's own final user message; without one, the last
// message sent stands in for it.
func (s *SimpleStep[T]) lastUserContent(prompt []Message) string {
	own := prompt[len(prompt)-len(s.templates):]
	for i := len(own) - 1; i >= 0; i-- {
		if own[i].Role == RoleUser {
			return own[i].Content
		}
	}
	return prompt[len(prompt)-1].Content
}

func (s *SimpleStep[T]) parse(text string) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()
	return s.parser(text)
}

// PromptBuilder declares a SimpleStep.
type PromptBuilder[T any] struct {
	name      string
	label     Label[T]
	parser    Parser[T]
	templates []template
	history   int
	overrides []ConfigOption
	err       error
}

// Prompt starts a single-call step named name whose parsed result is stored under label.
func Prompt[T any](name string, label Label[T], parser Parser[T]) *PromptBuilder[T] {
	return &PromptBuilder[T]{name: name, label: label, parser: parser}
}

func (b *PromptBuilder[T]) System(text string) *PromptBuilder[T] {
	b.templates = append(b.templates, template{role: RoleSystem, text: text})
	return b
}

func (b *PromptBuilder[T]) User(text string) *PromptBuilder[T] {
	b.templates = append(b.templates, template{role: RoleUser, text: text})
	return b
}

func (b *PromptBuilder[T]) Assistant(text string) *PromptBuilder[T] {
	b.templates = append(b.templates, template{role: RoleAssistant, text: text})
	return b
}

// History prepends the whole conversation so far.
func (b *PromptBuilder[T]) History() *PromptBuilder[T] {
	b.history = -1
	return b
}

// HistoryPairs prepends only the last n user/assistant pairs.
func (b *PromptBuilder[T]) HistoryPairs(n int) *PromptBuilder[T] {
	if n <= 0 {
		b.err = fmt.Errorf("history pairs must be positive, got %d", n)
		return b
	}
	b.history = n
	return b
}

// Configure overrides parts of the chain configuration for this step only.
func (b *PromptBuilder[T]) Configure(opts ...ConfigOption) *PromptBuilder[T] {
	b.overrides = append(b.overrides, opts...)
	return b
}

func (b *PromptBuilder[T]) Model(m string) *PromptBuilder[T] { return b.Configure(WithModel(m)) }
func (b *PromptBuilder[T]) MaxTokens(n int) *PromptBuilder[T] {
	return b.Configure(WithMaxTokens(n))
}
func (b *PromptBuilder[T]) Temperature(v float64) *PromptBuilder[T] {
	return b.Configure(WithTemperature(v))
}
func (b *PromptBuilder[T]) TopP(v float64) *PromptBuilder[T] { return b.Configure(WithTopP(v)) }
func (b *PromptBuilder[T]) PresencePenalty(v float64) *PromptBuilder[T] {
	return b.Configure(WithPresencePenalty(v))
}
func (b *PromptBuilder[T]) FrequencyPenalty(v float64) *PromptBuilder[T] {
	return b.Configure(WithFrequencyPenalty(v))
}

func (b *PromptBuilder[T]) Build() (Step, error) {
	if b.err != nil {
		return nil, fmt.Errorf("step %q: %w", b.name, b.err)
	}
	if strings.TrimSpace(b.name) == "" {
		return nil, errors.New("step name required")
	}
	if b.label.Type() == nil {
		return nil, fmt.Errorf("step %q: label required", b.name)
	}
	if b.parser == nil {
		return nil, fmt.Errorf("step %q: parser required", b.name)
	}
	if len(b.templates) == 0 {
		return nil, fmt.Errorf("step %q: at least one message required", b.name)
	}
	return &SimpleStep[T]{
		name:      b.name,
		templates: slices.Clone(b.templates),
		history:   b.history,
		parser:    b.parser,
		label:     b.label,
		overrides: slices.Clone(b.overrides),
	}, nil
}
