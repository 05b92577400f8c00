package observability

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/learninglab-backend/internal/platform/envutil"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

// Metrics is the process-wide Prometheus registry for HTTP traffic and chain calls.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	apiRequests  *CounterVec
	apiLatency   *HistogramVec
	apiInflight  *Gauge
	llmRequests  *CounterVec
	llmLatency   *HistogramVec
	llmTokens    *CounterVec
	llmCost      *CounterVec
	chainRuns    *CounterVec
	chainLatency *HistogramVec

	costInputPer1K  float64
	costOutputPer1K float64
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

// Init builds the registry once. It returns nil when METRICS_ENABLED is off.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		instance.costInputPer1K = envutil.Float("LLM_COST_INPUT_PER_1K", 0)
		instance.costOutputPer1K = envutil.Float("LLM_COST_OUTPUT_PER_1K", 0)
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// NewMetrics returns an unregistered registry; tests use it directly.
func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("ll_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"ll_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		),
		apiInflight: NewGauge("ll_api_inflight_requests", "In-flight API requests."),
		llmRequests: NewCounterVec("ll_llm_requests_total", "Remote chat calls by model/step/status.", []string{"model", "step", "status"}),
		llmLatency: NewHistogramVec(
			"ll_llm_request_duration_seconds",
			"Remote chat call latency in seconds by model/step.",
			[]string{"model", "step"},
			[]float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		),
		llmTokens: NewCounterVec("ll_llm_tokens_total", "Tokens by model/kind (input/output/total).", []string{"model", "kind"}),
		llmCost:   NewCounterVec("ll_llm_cost_usd_total", "Estimated LLM spend by model/kind.", []string{"model", "kind"}),
		chainRuns: NewCounterVec("ll_chain_runs_total", "Chain runs by subject and whether any step failed.", []string{"subject", "status"}),
		chainLatency: NewHistogramVec(
			"ll_chain_run_duration_seconds",
			"Chain run wall time in seconds by subject.",
			[]string{"subject"},
			[]float64{1, 5, 10, 30, 60, 120, 300},
		),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency, m.llmTokens, m.llmCost,
		m.chainRuns, m.chainLatency,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveLLMRequest records one ledger entry. status is "ok" or the failure kind.
func (m *Metrics) ObserveLLMRequest(model, step, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.llmRequests.Inc(model, step, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), model, step)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
		if m.costInputPer1K > 0 {
			m.llmCost.Add(float64(inputTokens)/1000.0*m.costInputPer1K, model, "input")
		}
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
		if m.costOutputPer1K > 0 {
			m.llmCost.Add(float64(outputTokens)/1000.0*m.costOutputPer1K, model, "output")
		}
	}
	if total := inputTokens + outputTokens; total > 0 {
		m.llmTokens.Add(float64(total), model, "total")
	}
}

func (m *Metrics) ObserveChainRun(subject string, failed bool, dur time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if failed {
		status = "partial"
	}
	m.chainRuns.Inc(subject, status)
	m.chainLatency.Observe(dur.Seconds(), subject)
}
