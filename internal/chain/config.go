package chain

import "slices"

// FunctionSchema describes one callable function offered to the model.
type FunctionSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ChatConfig is the model/sampling bundle sent with every remote call.
// Treat it as a value: use With to derive a modified copy.
type ChatConfig struct {
	Model            string           `json:"model"`
	MaxTokens        int              `json:"max_tokens"`
	Temperature      float64          `json:"temperature"`
	TopP             float64          `json:"top_p"`
	PresencePenalty  float64          `json:"presence_penalty"`
	FrequencyPenalty float64          `json:"frequency_penalty"`
	Functions        []FunctionSchema `json:"functions,omitempty"`
}

func DefaultConfig() ChatConfig {
	return ChatConfig{
		Model:       "gpt-4o",
		MaxTokens:   2048,
		Temperature: 1.0,
		TopP:        1.0,
	}
}

type ConfigOption func(*ChatConfig)

func WithModel(model string) ConfigOption {
	return func(c *ChatConfig) { c.Model = model }
}

func WithMaxTokens(n int) ConfigOption {
	return func(c *ChatConfig) { c.MaxTokens = n }
}

func WithTemperature(v float64) ConfigOption {
	return func(c *ChatConfig) { c.Temperature = v }
}

func WithTopP(v float64) ConfigOption {
	return func(c *ChatConfig) { c.TopP = v }
}

func WithPresencePenalty(v float64) ConfigOption {
	return func(c *ChatConfig) { c.PresencePenalty = v }
}

func WithFrequencyPenalty(v float64) ConfigOption {
	return func(c *ChatConfig) { c.FrequencyPenalty = v }
}

func WithFunctions(fs ...FunctionSchema) ConfigOption {
	return func(c *ChatConfig) { c.Functions = slices.Clone(fs) }
}

// With returns a copy of c with opts applied. c itself is left untouched.
func (c ChatConfig) With(opts ...ConfigOption) ChatConfig {
	out := c
	out.Functions = slices.Clone(c.Functions)
	for _, opt := range opts {
		if opt != nil {
			opt(&out)
		}
	}
	return out
}
