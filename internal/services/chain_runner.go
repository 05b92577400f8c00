package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/learninglab-backend/internal/chain"
	"github.com/yungbote/learninglab-backend/internal/data/repos"
	"github.com/yungbote/learninglab-backend/internal/domain"
	"github.com/yungbote/learninglab-backend/internal/observability"
	"github.com/yungbote/learninglab-backend/internal/pkg/dbctx"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

// Subject names what a chain run generates, for call-log accounting.
type Subject struct {
	Kind        string
	ID          *uuid.UUID
	OwnerUserID uuid.UUID
}

// EventPublisher fans ledger entries out to live listeners (redis pub/sub in production).
type EventPublisher interface {
	Publish(ctx context.Context, channel string, v any) error
}

// CallEvent is what listeners receive for every ledger entry of a run.
type CallEvent struct {
	Subject   string    `json:"subject"`
	SubjectID string    `json:"subject_id,omitempty"`
	Step      string    `json:"step"`
	Label     string    `json:"label"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// ChainRunner runs chains against the configured caller with the server's run limits,
// then persists the ledger as call logs.
type ChainRunner struct {
	caller      chain.Caller
	callLogs    repos.CallLogRepo
	log         *logger.Logger
	defaults    chain.ChatConfig
	events      EventPublisher
	metrics     *observability.Metrics
	maxInFlight int
	callTimeout time.Duration
}

type RunnerOption func(*ChainRunner)

func WithDefaults(cfg chain.ChatConfig) RunnerOption {
	return func(r *ChainRunner) { r.defaults = cfg }
}

func WithMaxInFlight(n int) RunnerOption {
	return func(r *ChainRunner) { r.maxInFlight = n }
}

func WithCallTimeout(d time.Duration) RunnerOption {
	return func(r *ChainRunner) { r.callTimeout = d }
}

func WithEvents(p EventPublisher) RunnerOption {
	return func(r *ChainRunner) { r.events = p }
}

func WithMetrics(m *observability.Metrics) RunnerOption {
	return func(r *ChainRunner) { r.metrics = m }
}

func NewChainRunner(caller chain.Caller, callLogs repos.CallLogRepo, baseLog *logger.Logger, opts ...RunnerOption) *ChainRunner {
	r := &ChainRunner{
		caller:   caller,
		callLogs: callLogs,
		log:      baseLog.With("service", "ChainRunner"),
		defaults: chain.DefaultConfig(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Defaults is the chat configuration every chain starts from.
func (r *ChainRunner) Defaults() chain.ChatConfig { return r.defaults.With() }

func (r *ChainRunner) Run(ctx context.Context, c *chain.Chain, subj Subject) *chain.Result {
	return r.RunFrom(ctx, c, chain.Root(c.Defaults()), subj)
}

// RunFrom is Run over a seeded starting Context. User-supplied text goes in as values
// so that templates never re-read it.
func (r *ChainRunner) RunFrom(ctx context.Context, c *chain.Chain, start chain.Context, subj Subject) *chain.Result {
	log := r.log.WithContext(ctx).With("subject", subj.Kind)
	opts := []chain.RunOption{
		chain.WithLogger(log),
		chain.WithMaxInFlight(r.maxInFlight),
		chain.WithCallTimeout(r.callTimeout),
	}
	if r.events != nil && subj.OwnerUserID != uuid.Nil {
		opts = append(opts, chain.WithObserver(r.publisher(ctx, subj)))
	}

	began := time.Now()
	res := c.RunFrom(ctx, start, r.caller, opts...)
	r.observe(res, subj, time.Since(began))

	if r.callLogs != nil {
		logs := CallLogsFromResult(res, subj)
		// the run may have ended on a cancelled context; the accounting must still land
		dbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}
		if _, err := r.callLogs.Create(dbc, logs); err != nil {
			log.Error("persist call logs failed", "run_id", res.RunID(), "error", err)
		}
	}
	return res
}

func (r *ChainRunner) publisher(ctx context.Context, subj Subject) func(chain.CallRecord) {
	channel := "calls:" + subj.OwnerUserID.String()
	pubCtx := context.WithoutCancel(ctx)
	return func(rec chain.CallRecord) {
		ev := CallEvent{
			Subject: subj.Kind,
			Step:    rec.Step,
			Label:   rec.Label.Name,
			Success: rec.Succeeded(),
			At:      rec.At,
		}
		if subj.ID != nil {
			ev.SubjectID = subj.ID.String()
		}
		if e := rec.Err(); e != nil {
			ev.Error = e.Error()
		}
		if err := r.events.Publish(pubCtx, channel, ev); err != nil {
			r.log.Warn("publish call event failed", "channel", channel, "error", err)
		}
	}
}

func (r *ChainRunner) observe(res *chain.Result, subj Subject, elapsed time.Duration) {
	if r.metrics == nil {
		return
	}
	for _, rec := range res.Ledger() {
		status := "ok"
		var took time.Duration
		if s, ok := rec.Outcome.(chain.Success); ok {
			took = s.Elapsed
		} else if e := rec.Err(); e != nil && e.Kind != nil {
			status = e.Kind.Error()
		}
		u := rec.Usage()
		r.metrics.ObserveLLMRequest(rec.Config.Model, rec.Step, status, took, u.PromptTokens, u.CompletionTokens)
	}
	r.metrics.ObserveChainRun(subj.Kind, len(res.Errors()) > 0, elapsed)
}

// CallLogsFromResult converts every ledger entry of res into a call-log row.
func CallLogsFromResult(res *chain.Result, subj Subject) []*domain.CallLog {
	records := res.Ledger()
	out := make([]*domain.CallLog, 0, len(records))
	var owner *uuid.UUID
	if subj.OwnerUserID != uuid.Nil {
		id := subj.OwnerUserID
		owner = &id
	}
	for _, rec := range records {
		row := &domain.CallLog{
			ID:          rec.ID,
			RunID:       res.RunID(),
			OwnerUserID: owner,
			Subject:     subj.Kind,
			SubjectID:   subj.ID,
			Step:        rec.Step,
			Label:       rec.Label.Name,
			Model:       rec.Config.Model,
			Prompt:      mustJSON(rec.Prompt),
			Config:      mustJSON(rec.Config),
			CalledAt:    rec.At,
		}
		switch o := rec.Outcome.(type) {
		case chain.Success:
			row.Success = true
			row.Completion = o.Completion
			row.PromptTokens = o.Usage.PromptTokens
			row.CompletionTokens = o.Usage.CompletionTokens
			row.TotalTokens = o.Usage.TotalTokens
			row.ElapsedMS = o.Elapsed.Milliseconds()
		case chain.Failure:
			if o.Err != nil {
				if o.Err.Kind != nil {
					row.ErrorKind = o.Err.Kind.Error()
				}
				if cause := o.Err.Cause(); cause != nil {
					row.Error = cause.Error()
				}
			}
		}
		out = append(out, row)
	}
	return out
}

func mustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil || len(b) == 0 {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(b)
}

// firstFailure returns the earliest recorded failure among labels, or nil.
func firstFailure(res *chain.Result, labels ...chain.Keyed) error {
	for _, l := range labels {
		if e := res.Error(l); e != nil {
			return e
		}
		if !res.Has(l) {
			return chain.ErrNotFound
		}
	}
	return nil
}
