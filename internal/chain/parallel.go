package chain

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

type branch struct {
	name string
	step Step
}

// ParallelStep runs named branches concurrently against forks of the incoming Context
// and joins their outputs into a map keyed by branch name.
type ParallelStep[R any] struct {
	name     string
	branches []branch
	join     Label[map[string]R]
}

func (s *ParallelStep[R]) Name() string { return s.name }
func (s *ParallelStep[R]) Output() Key  { return s.join.Key() }

// Branches returns the branch names in declaration order.
func (s *ParallelStep[R]) Branches() []string {
	out := make([]string, len(s.branches))
	for i, b := range s.branches {
		out[i] = b.name
	}
	return out
}

func (s *ParallelStep[R]) Run(ctx context.Context, in Context, env *Env) Context {
	joinKey := s.join.Key()
	ctx, span := env.startSpan(ctx, "parallel", s.name, joinKey)
	defer span.End()
	span.SetAttributes(attribute.Int("chain.branches", len(s.branches)))
	done := env.stepTimer(span, s.name, joinKey)

	vals := make([]R, len(s.branches))
	oks := make([]bool, len(s.branches))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range s.branches {
		output := b.step.Output()
		fork := in.Fork().without(output)
		g.Go(func() error {
			final := b.step.Run(gctx, fork, env)
			if v, ok := final.lookup(output); ok {
				vals[i], oks[i] = v.(R)
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]R, len(s.branches))
	for i, b := range s.branches {
		if oks[i] {
			out[b.name] = vals[i]
		}
	}
	done(nil)
	return in.plus(joinKey, out)
}

// ParallelBuilder declares a ParallelStep.
type ParallelBuilder[R any] struct {
	name  string
	names []string
	specs []StepSpec
	join  Label[map[string]R]
}

// Parallel starts a named-branch block whose outputs are joined under join.
func Parallel[R any](join Label[map[string]R]) *ParallelBuilder[R] {
	return &ParallelBuilder[R]{name: "parallel(" + join.Name() + ")", join: join}
}

func (b *ParallelBuilder[R]) Named(name string) *ParallelBuilder[R] {
	b.name = name
	return b
}

func (b *ParallelBuilder[R]) Branch(name string, spec StepSpec) *ParallelBuilder[R] {
	b.names = append(b.names, name)
	b.specs = append(b.specs, spec)
	return b
}

func (b *ParallelBuilder[R]) Build() (Step, error) {
	if b.join.Type() == nil {
		return nil, fmt.Errorf("%s: join label required", b.name)
	}
	if len(b.specs) == 0 {
		return nil, fmt.Errorf("%s: at least one branch required", b.name)
	}
	seen := make(map[string]bool, len(b.names))
	for _, n := range b.names {
		if strings.TrimSpace(n) == "" {
			return nil, fmt.Errorf("%s: branch name required", b.name)
		}
		if seen[n] {
			return nil, fmt.Errorf("%s: duplicate branch %q", b.name, n)
		}
		seen[n] = true
	}
	steps, err := buildAll(b.specs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.name, err)
	}
	want := reflect.TypeFor[R]()
	branches := make([]branch, len(steps))
	for i, st := range steps {
		if out := st.Output(); !assignable(out.Type, want) {
			return nil, fmt.Errorf("%s: branch %q produces %s, join expects %s", b.name, b.names[i], out.Type, want)
		}
		branches[i] = branch{name: b.names[i], step: st}
	}
	return &ParallelStep[R]{name: b.name, branches: branches, join: b.join}, nil
}
