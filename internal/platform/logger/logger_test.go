package logger

import "testing"

func TestSanitizeKVsRedactsSecretsButNotCounts(t *testing.T) {
	redactOnce.Do(func() {})
	redactionEnabled = true

	out := sanitizeKVs([]interface{}{"api_key", "sk-123", "prompt_tokens", 42, "user_id", "u1", "step", "goals"})
	if out[1] != "[REDACTED]" {
		t.Fatalf("api_key not redacted: %v", out[1])
	}
	if out[3] != 42 {
		t.Fatalf("token count redacted: %v", out[3])
	}
	if s, _ := out[5].(string); len(s) < 5 || s[:5] != "hash:" {
		t.Fatalf("user_id not hashed: %v", out[5])
	}
	if out[7] != "goals" {
		t.Fatalf("plain value changed: %v", out[7])
	}
}

func TestNopIsUsable(t *testing.T) {
	l := Nop()
	l.With("k", "v").Info("hello", "n", 1)
	l.Sync()
}

func TestSanitizeKVsSummarizesUserContent(t *testing.T) {
	redactOnce.Do(func() {})
	redactionEnabled = true

	out := sanitizeKVs([]interface{}{"prompt", "Course title: Acroyoga", "subject", "course_plan", "owner_id", "u2"})
	if out[1] != "[22 chars]" {
		t.Fatalf("prompt not summarized: %v", out[1])
	}
	if out[3] != "course_plan" {
		t.Fatalf("subject kind must stay readable: %v", out[3])
	}
	if s, _ := out[5].(string); len(s) < 5 || s[:5] != "hash:" {
		t.Fatalf("owner_id not hashed: %v", out[5])
	}
}
