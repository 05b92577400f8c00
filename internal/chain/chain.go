package chain

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Chain is an ordered, immutable list of steps plus the configuration the run starts from.
type Chain struct {
	steps    []Step
	defaults ChatConfig
}

// Builder assembles a Chain. It performs no execution.
type Builder struct {
	defaults ChatConfig
	specs    []StepSpec
}

func NewBuilder(defaults ChatConfig) *Builder {
	return &Builder{defaults: defaults}
}

// Then appends steps in execution order.
func (b *Builder) Then(specs ...StepSpec) *Builder {
	b.specs = append(b.specs, specs...)
	return b
}

func (b *Builder) Build() (*Chain, error) {
	if len(b.specs) == 0 {
		return nil, errors.New("chain: no steps")
	}
	steps, err := buildAll(b.specs)
	if err != nil {
		return nil, fmt.Errorf("chain: %w", err)
	}
	return &Chain{steps: steps, defaults: b.defaults.With()}, nil
}

func (c *Chain) Steps() []Step { return slices.Clone(c.steps) }

func (c *Chain) Defaults() ChatConfig { return c.defaults.With() }

// Run threads a fresh Context through every step in order and returns the Result.
// It always returns a Result, even when every step failed.
func (c *Chain) Run(ctx context.Context, caller Caller, opts ...RunOption) *Result {
	return c.RunFrom(ctx, Root(c.defaults.With()), caller, opts...)
}

// RunFrom is Run starting from a caller-supplied Context, for seeding inputs with With.
func (c *Chain) RunFrom(ctx context.Context, start Context, caller Caller, opts ...RunOption) *Result {
	if ctx == nil {
		ctx = context.Background()
	}
	if start.values == nil {
		start = Root(c.defaults.With())
	}
	env := newEnv(caller, opts...)
	runID := uuid.New()

	ctx, span := env.tracer.Start(ctx, "chain.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("chain.run_id", runID.String()),
		attribute.Int("chain.steps", len(c.steps)),
	)

	begin := time.Now()
	final := runSteps(ctx, start, c.steps, env)
	res := newResult(runID, final, env.ledger.Records())

	env.log.Info("chain run finished",
		"run_id", runID.String(),
		"steps", len(c.steps),
		"calls", len(res.records),
		"errors", len(res.Errors()),
		"elapsed_ms", time.Since(begin).Milliseconds(),
	)
	return res
}
