package chain

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultAlias       = "item"
	DefaultMaxElements = 100
)

// ForEachStep runs its sub-chain once per element of a source list, concurrently, and
// joins the per-element outputs into one list in source order.
type ForEachStep[T, R any] struct {
	name   string
	source Label[[]T]
	alias  Label[T]
	max    int
	steps  []Step
	output Key
	// produced holds every sub-step output; a branch never starts with a parent value under one.
	produced []Key
	join     Label[[]R]
}

func (s *ForEachStep[T, R]) Name() string { return s.name }
func (s *ForEachStep[T, R]) Output() Key  { return s.join.Key() }

func (s *ForEachStep[T, R]) Run(ctx context.Context, in Context, env *Env) Context {
	joinKey := s.join.Key()
	ctx, span := env.startSpan(ctx, "foreach", s.name, joinKey)
	defer span.End()
	done := env.stepTimer(span, s.name, joinKey)

	items, err := Get(in, s.source)
	if err != nil {
		se := newStepError(ErrMissingInput, s.name, joinKey, err)
		env.ledger.Append(failure(nil, in.Config(), se))
		done(se)
		return in
	}

	var truncated error
	if len(items) > s.max {
		se := newStepError(ErrCapacity, s.name, joinKey,
			fmt.Errorf("truncated %d items down to cap of %d", len(items), s.max))
		env.ledger.Append(failure(nil, in.Config(), se))
		truncated = se
		items = items[:s.max]
	}
	span.SetAttributes(attribute.Int("chain.branches", len(items)))

	out := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		branch := in.Fork().without(s.produced...).plus(s.alias.Key(), item)
		g.Go(func() error {
			final := runSteps(gctx, branch, s.steps, env)
			if v, ok := final.lookup(s.output); ok {
				if r, ok := v.(R); ok {
					out[i] = r
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	done(truncated)
	return in.plus(joinKey, out)
}

// ForEachBuilder declares a ForEachStep.
type ForEachBuilder[T, R any] struct {
	name   string
	source Label[[]T]
	alias  string
	max    int
	specs  []StepSpec
	join   Label[[]R]
}

// ForEach starts a fan-out over the list stored under source. Each element is exposed
// to the sub-steps as ${item} unless renamed with As.
func ForEach[T, R any](source Label[[]T]) *ForEachBuilder[T, R] {
	return &ForEachBuilder[T, R]{
		name:   "forEach(" + source.Name() + ")",
		source: source,
		alias:  DefaultAlias,
		max:    DefaultMaxElements,
	}
}

func (b *ForEachBuilder[T, R]) Named(name string) *ForEachBuilder[T, R] {
	b.name = name
	return b
}

func (b *ForEachBuilder[T, R]) As(alias string) *ForEachBuilder[T, R] {
	b.alias = alias
	return b
}

func (b *ForEachBuilder[T, R]) Max(n int) *ForEachBuilder[T, R] {
	b.max = n
	return b
}

// Do appends sub-steps. The last one's output is what each branch contributes.
func (b *ForEachBuilder[T, R]) Do(specs ...StepSpec) *ForEachBuilder[T, R] {
	b.specs = append(b.specs, specs...)
	return b
}

func (b *ForEachBuilder[T, R]) JoinInto(l Label[[]R]) *ForEachBuilder[T, R] {
	b.join = l
	return b
}

func (b *ForEachBuilder[T, R]) Build() (Step, error) {
	if b.source.Type() == nil {
		return nil, fmt.Errorf("%s: source label required", b.name)
	}
	if strings.TrimSpace(b.alias) == "" {
		return nil, fmt.Errorf("%s: alias required", b.name)
	}
	if b.max <= 0 {
		return nil, fmt.Errorf("%s: max elements must be positive, got %d", b.name, b.max)
	}
	if b.join.Type() == nil {
		return nil, fmt.Errorf("%s: join label required", b.name)
	}
	if len(b.specs) == 0 {
		return nil, fmt.Errorf("%s: at least one sub-step required", b.name)
	}
	steps, err := buildAll(b.specs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.name, err)
	}
	produced := make([]Key, len(steps))
	for i, st := range steps {
		produced[i] = st.Output()
	}
	output := produced[len(produced)-1]
	if want := reflect.TypeFor[R](); !assignable(output.Type, want) {
		return nil, fmt.Errorf("%s: last sub-step produces %s, join expects %s", b.name, output.Type, want)
	}
	return &ForEachStep[T, R]{
		name:     b.name,
		source:   b.source,
		alias:    NewLabel[T](b.alias),
		max:      b.max,
		steps:    steps,
		output:   output,
		produced: produced,
		join:     b.join,
	}, nil
}

func assignable(from, to reflect.Type) bool {
	return from != nil && to != nil && from.AssignableTo(to)
}

// buildAll builds specs in order, collecting every failure.
func buildAll(specs []StepSpec) ([]Step, error) {
	steps := make([]Step, 0, len(specs))
	var errs []error
	for i, spec := range specs {
		if spec == nil {
			errs = append(errs, fmt.Errorf("step %d: nil", i))
			continue
		}
		st, err := spec.Build()
		if err != nil {
			errs = append(errs, fmt.Errorf("step %d: %w", i, err))
			continue
		}
		steps = append(steps, st)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return steps, nil
}
