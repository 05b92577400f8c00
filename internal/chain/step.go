package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

const tracerName = "github.com/yungbote/learninglab-backend/internal/chain"

// Step is one unit of chain work. Run never fails: failures are recorded in the
// ledger and the step returns the Context it was given.
type Step interface {
	Name() string
	// Output is the key under which the step stores its result.
	Output() Key
	Run(ctx context.Context, in Context, env *Env) Context
}

// StepSpec is a step under construction; Build validates it and returns the immutable Step.
type StepSpec interface {
	Build() (Step, error)
}

// Env is what a running step may touch besides its own Context: the remote-call port,
// the shared ledger, and ambient logging/tracing. It is shared by every branch of a run.
type Env struct {
	caller      Caller
	ledger      *Ledger
	log         *logger.Logger
	tracer      trace.Tracer
	inflight    *semaphore.Weighted
	callTimeout time.Duration
}

type RunOption func(*Env)

func WithLogger(log *logger.Logger) RunOption {
	return func(e *Env) {
		if log != nil {
			e.log = log
		}
	}
}

func WithTracer(t trace.Tracer) RunOption {
	return func(e *Env) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithMaxInFlight bounds the number of remote calls in flight at once across all
// branches of the run. n <= 0 means no bound.
func WithMaxInFlight(n int) RunOption {
	return func(e *Env) {
		if n > 0 {
			e.inflight = semaphore.NewWeighted(int64(n))
		} else {
			e.inflight = nil
		}
	}
}

// WithCallTimeout puts a deadline on every remote call. An expired call is recorded as
// a transport failure. d <= 0 means no deadline.
func WithCallTimeout(d time.Duration) RunOption {
	return func(e *Env) { e.callTimeout = d }
}

// WithObserver is invoked once for every ledger entry as it is appended. It may be
// called from several goroutines at once.
func WithObserver(fn func(CallRecord)) RunOption {
	return func(e *Env) { e.ledger.onAdd = fn }
}

func newEnv(caller Caller, opts ...RunOption) *Env {
	e := &Env{
		caller: caller,
		ledger: NewLedger(),
		log:    logger.Nop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *Env) Ledger() *Ledger { return e.ledger }

var errNoCaller = errors.New("no caller configured")

// call performs the single remote call of a step. It is the only place a step blocks.
func (e *Env) call(ctx context.Context, messages []Message, cfg ChatConfig) (out Completion, err error) {
	if e.caller == nil {
		return Completion{}, errNoCaller
	}
	if e.inflight != nil {
		if err := e.inflight.Acquire(ctx, 1); err != nil {
			return Completion{}, err
		}
		defer e.inflight.Release(1)
	}
	if e.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.callTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("caller panic: %v", r)
		}
	}()

	start := time.Now()
	out, err = e.caller.Call(ctx, messages, cfg)
	if err != nil {
		return Completion{}, err
	}
	if out.Elapsed <= 0 {
		out.Elapsed = time.Since(start)
	}
	return out, nil
}

func (e *Env) startSpan(ctx context.Context, kind, step string, label Key) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "chain."+kind,
		trace.WithAttributes(
			attribute.String("chain.step", step),
			attribute.String("chain.label", label.Name),
		),
	)
}

// stepTimer logs the end of a step with its elapsed time and marks the span.
func (e *Env) stepTimer(span trace.Span, step string, label Key) func(err error) {
	start := time.Now()
	return func(err error) {
		kv := []any{"step", step, "label", label.Name, "elapsed_ms", time.Since(start).Milliseconds()}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			kv = append(kv, "error", err.Error())
			e.log.Warn("chain step failed", kv...)
			return
		}
		e.log.Debug("chain step finished", kv...)
	}
}

// runSteps threads c through steps strictly in order.
func runSteps(ctx context.Context, c Context, steps []Step, env *Env) Context {
	for _, s := range steps {
		c = s.Run(ctx, c, env)
	}
	return c
}
