package observability

import (
	"strings"
	"testing"
	"time"
)

func TestMetricsWritePrometheus(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("POST", "/api/course-plans/:id/generate", "200", 2*time.Second)
	m.ObserveLLMRequest("gpt-4o", "inventory", "ok", time.Second, 10, 5)
	m.ObserveLLMRequest("gpt-4o", "goals", "transport failure", 0, 0, 0)
	m.ObserveChainRun("course_plan", true, 3*time.Second)

	var b strings.Builder
	if err := m.WritePrometheus(&b); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := b.String()
	for _, want := range []string{
		`ll_api_requests_total{method="POST",route="/api/course-plans/:id/generate",status="200"} 1.000000`,
		`ll_llm_tokens_total{model="gpt-4o",kind="total"} 15.000000`,
		`ll_llm_requests_total{model="gpt-4o",step="goals",status="transport failure"} 1.000000`,
		`ll_chain_runs_total{subject="course_plan",status="partial"} 1.000000`,
		`ll_llm_request_duration_seconds_bucket{model="gpt-4o",step="inventory",le="1"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.ObserveLLMRequest("m", "s", "ok", time.Second, 1, 1)
	m.ApiInflightInc()
	m.ApiInflightDec()
	if err := m.WritePrometheus(&strings.Builder{}); err != nil {
		t.Fatalf("nil metrics should write nothing: %v", err)
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"a", "b"}, []string{`x"y`})
	if got != `{a="x\"y",b="unknown"}` {
		t.Fatalf("labelString=%s", got)
	}
}
