package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/learninglab-backend/internal/inference/engine/mock"
)

func TestSkillRubricGenerate(t *testing.T) {
	eng := mock.New().
		When("List the five skill degree labels", "Novice\nBeginner\nIntermediate\nAdvanced\nExpert").
		When("List 5-7 key skill dimensions", "Balance\nTrust").
		When("describe what a student must demonstrate", "c1\n\nc2\n\nc3\n\nc4\n\nc5").
		When("list three exercises", "e1\ne2\n\ne3\n\ne4\n\ne5\n\ne6\ne7")
	env := newTestEnv(t, eng, WithMaxInFlight(2))
	svc := NewSkillRubricService(env.runner, env.log)

	out, err := svc.Generate(context.Background(), uuid.New(), sampleInfo)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(out.Dimensions) != 2 || out.Dimensions[0].Name != "Balance" || out.Dimensions[1].Name != "Trust" {
		t.Fatalf("unexpected dimensions: %+v", out.Dimensions)
	}
	degrees := out.Dimensions[1].Degrees
	if len(degrees) != 5 || degrees[0].Name != "Novice" || degrees[4].Name != "Expert" {
		t.Fatalf("unexpected degrees: %+v", degrees)
	}
	if degrees[0].Criteria != "c1" || degrees[4].Criteria != "c5" {
		t.Fatalf("unexpected criteria: %+v", degrees)
	}
	if len(degrees[0].Lessons) != 2 || degrees[0].Lessons[1] != "e2" || len(degrees[4].Lessons) != 2 {
		t.Fatalf("unexpected lessons: %+v", degrees)
	}

	// 2 list calls + 2 dimensions x 2 branches
	calls := eng.Calls()
	if len(calls) != 6 {
		t.Fatalf("expected 6 calls, got %d", len(calls))
	}
	if calls[0].Opts.MaxTokens != 50 {
		t.Fatalf("degree labels should use 50 max tokens, got %d", calls[0].Opts.MaxTokens)
	}
	for _, c := range calls[2:] {
		if c.Opts.MaxTokens != 800 {
			t.Fatalf("detail calls should use 800 max tokens, got %d", c.Opts.MaxTokens)
		}
	}
}

func TestSkillRubricDimensionsFailure(t *testing.T) {
	eng := mock.New().
		When("List the five skill degree labels", "Novice\nExpert").
		Fail("List 5-7 key skill dimensions", errors.New("overloaded"))
	env := newTestEnv(t, eng)
	svc := NewSkillRubricService(env.runner, env.log)

	_, err := svc.Generate(context.Background(), uuid.New(), sampleInfo)
	requireStatus(t, err, http.StatusBadGateway)
	if len(eng.Calls()) != 2 {
		t.Fatalf("fan-out should not run without dimensions, got %d calls", len(eng.Calls()))
	}
}

func TestAssembleRubricToleratesMissingBlocks(t *testing.T) {
	r := assembleRubric(
		[]string{"Balance", "Trust"},
		[]string{"Novice", "Expert"},
		[]string{"only novice"},
		nil,
	)
	if len(r.Dimensions) != 2 {
		t.Fatalf("expected 2 dimensions, got %d", len(r.Dimensions))
	}
	first := r.Dimensions[0].Degrees
	if first[0].Criteria != "only novice" || first[1].Criteria != "" {
		t.Fatalf("unexpected criteria: %+v", first)
	}
	for _, d := range r.Dimensions[1].Degrees {
		if d.Criteria != "" || d.Lessons == nil || len(d.Lessons) != 0 {
			t.Fatalf("missing blocks should leave empty degrees: %+v", d)
		}
	}
}

func TestSkillRubricCourseInfoIsNotTemplated(t *testing.T) {
	eng := mock.New().
		When("List the five skill degree labels", "Novice\nExpert").
		When("List 5-7 key skill dimensions", "Balance").
		When("describe what a student must demonstrate", "c1\n\nc2").
		When("list three exercises", "e1\n\ne2")
	env := newTestEnv(t, eng)
	svc := NewSkillRubricService(env.runner, env.log)

	info := sampleInfo
	info.Description = "Pairs work on ${dimension} and ${degreeLabels}"
	if _, err := svc.Generate(context.Background(), uuid.New(), info); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	calls := eng.Calls()
	if len(calls) != 4 {
		t.Fatalf("expected 4 calls, got %d", len(calls))
	}
	for _, c := range calls {
		if !strings.Contains(c.Messages[1].Content, "Course description: Pairs work on ${dimension} and ${degreeLabels}\n") {
			t.Fatalf("course info rewritten: %q", c.Messages[1].Content)
		}
	}
}
