package engine

import "context"

type Message struct {
	Role    string
	Content string
}

// Function is a callable function offered to the model (legacy "functions" field).
type Function struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type GenerateOptions struct {
	MaxTokens        int
	Temperature      float64
	TopP             float64
	PresencePenalty  float64
	FrequencyPenalty float64
	Functions        []Function

	// JSONObject asks the upstream for a JSON object response.
	JSONObject bool
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Generation struct {
	Text         string
	Usage        Usage
	FinishReason string
}

// Engine turns a message list into one completion. Implementations must be safe for
// concurrent use.
type Engine interface {
	Generate(ctx context.Context, model string, messages []Message, opts GenerateOptions) (Generation, error)
}
