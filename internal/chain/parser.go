package chain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Parser turns the raw completion text into a typed value.
type Parser[T any] func(text string) (T, error)

// Text returns the completion unchanged.
func Text() Parser[string] {
	return func(text string) (string, error) { return text, nil }
}

var lineSplitRe = regexp.MustCompile(`\r?\n`)

// Lines splits the completion into trimmed, non-blank lines.
func Lines() Parser[[]string] {
	return func(text string) ([]string, error) {
		parts := lineSplitRe.Split(text, -1)
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}
}

// JSON decodes the completion into T. A surrounding ``` fence is tolerated.
func JSON[T any]() Parser[T] {
	return func(text string) (T, error) {
		var out T
		clean := stripFence(text)
		if clean == "" {
			return out, fmt.Errorf("empty completion")
		}
		if err := json.Unmarshal([]byte(clean), &out); err != nil {
			return out, fmt.Errorf("invalid json: %w", err)
		}
		return out, nil
	}
}

// JSONObject decodes the completion into a generic JSON object.
func JSONObject() Parser[map[string]any] {
	return JSON[map[string]any]()
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	firstNL := strings.IndexByte(s, '\n')
	if firstNL == -1 {
		return strings.TrimSpace(strings.Trim(s, "`"))
	}
	s = s[firstNL+1:]
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
