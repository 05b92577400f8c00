package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/learninglab-backend/internal/data/repos/testutil"
	"github.com/yungbote/learninglab-backend/internal/inference/engine/mock"
	"github.com/yungbote/learninglab-backend/internal/pkg/dbctx"
)

const planJSONReply = "{\n  \"levels\": [\n    {\"title\": \"Level 1\", \"description\": \"Basics\", \"lessons\": [\n" +
	"      {\"title\": \"Bird\", \"synopsis\": \"s\", \"instructions\": \"i\", \"graduationRequirements\": [\"hold 10s\"]}\n" +
	"    ]}\n  ]\n}"

func scriptedPlanEngine(jsonReply string) *mock.Engine {
	return mock.New().
		When("List specific skills", "INVENTORY").
		When("Define inspiring yet realistic outcomes", "GOALS").
		When("Organize the course into", "CURRICULUM").
		When("Now convert the curriculum to JSON", jsonReply)
}

func TestCoursePlanGenerate(t *testing.T) {
	env := newTestEnv(t, scriptedPlanEngine(planJSONReply))
	svc := NewCoursePlanService(env.plans, env.runner, env.log)
	ctx := context.Background()
	owner := uuid.New()

	plan, err := svc.Create(ctx, owner, "Acro", "A beginner acroyoga course")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	gen, err := svc.Generate(ctx, owner, plan.ID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gen.Calls != 4 || gen.Errors != 0 {
		t.Fatalf("expected 4 clean calls, got calls=%d errors=%d", gen.Calls, gen.Errors)
	}
	got := gen.Plan
	if !strings.HasPrefix(string(got.GeneratedJSON), `{"levels":[{"title":"Level 1"`) {
		t.Fatalf("generated_json not compacted: %s", got.GeneratedJSON)
	}
	want := strings.Join([]string{"INVENTORY", "GOALS", "CURRICULUM", planJSONReply}, "\n\n---\n\n")
	if got.OpenAIResponses != want {
		t.Fatalf("openai_responses=%q", got.OpenAIResponses)
	}
	if got.LastGenerated == nil || got.LastRunID == nil || *got.LastRunID != gen.RunID {
		t.Fatalf("generation metadata not stored: %+v", got)
	}

	logs, err := env.callLogs.ListByRun(dbctx.Context{Ctx: ctx}, gen.RunID)
	if err != nil || len(logs) != 4 {
		t.Fatalf("expected 4 call logs, got %d (%v)", len(logs), err)
	}
	if logs[0].Step != "inventory" || logs[3].Step != "toJson" || logs[0].SubjectID == nil || *logs[0].SubjectID != plan.ID {
		t.Fatalf("unexpected call logs: %+v", logs[0])
	}

	// the goals step sees the direction, then the inventory as an assistant turn
	calls := env.eng.Calls()
	goals := calls[1].Messages
	if len(goals) != 4 || goals[1].Content != "A beginner acroyoga course" || goals[2].Role != "assistant" || goals[2].Content != "INVENTORY" {
		t.Fatalf("unexpected goals prompt: %+v", goals)
	}
	if calls[0].Opts.MaxTokens != 5000 {
		t.Fatalf("expected max tokens 5000, got %d", calls[0].Opts.MaxTokens)
	}
}

func TestCoursePlanGenerateInvalidJSON(t *testing.T) {
	env := newTestEnv(t, scriptedPlanEngine("Sure! Here is your plan."))
	svc := NewCoursePlanService(env.plans, env.runner, env.log)
	ctx := context.Background()
	owner := uuid.New()

	plan, _ := svc.Create(ctx, owner, "Acro", "direction")
	_, err := svc.Generate(ctx, owner, plan.ID)
	requireStatus(t, err, http.StatusBadGateway)

	usage, err := env.callLogs.UsageByOwner(dbctx.Context{Ctx: ctx}, owner, time.Now().Add(-time.Hour))
	if err != nil || usage.Calls != 4 {
		t.Fatalf("ledger should still be persisted, got %+v (%v)", usage, err)
	}
	stored, _ := svc.Get(ctx, owner, plan.ID)
	if stored.LastGenerated != nil || len(stored.GeneratedJSON) != 0 {
		t.Fatalf("plan should be untouched: %+v", stored)
	}
}

func TestCoursePlanGenerateSchemaMismatch(t *testing.T) {
	env := newTestEnv(t, scriptedPlanEngine(`{"levels":[{"description":"no title"}]}`))
	svc := NewCoursePlanService(env.plans, env.runner, env.log)
	ctx := context.Background()
	owner := uuid.New()

	plan, _ := svc.Create(ctx, owner, "Acro", "direction")
	_, err := svc.Generate(ctx, owner, plan.ID)
	requireStatus(t, err, http.StatusBadGateway)
	if !strings.Contains(err.Error(), "schema") {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestCoursePlanGenerateErrors(t *testing.T) {
	env := newTestEnv(t, scriptedPlanEngine(planJSONReply))
	svc := NewCoursePlanService(env.plans, env.runner, env.log)
	ctx := context.Background()
	owner := uuid.New()

	_, err := svc.Generate(ctx, owner, uuid.New())
	requireStatus(t, err, http.StatusNotFound)

	blank, _ := svc.Create(ctx, owner, "Blank", "   ")
	_, err = svc.Generate(ctx, owner, blank.ID)
	requireStatus(t, err, http.StatusBadRequest)

	// plans are private to their owner
	_, err = svc.Generate(ctx, uuid.New(), blank.ID)
	requireStatus(t, err, http.StatusNotFound)

	if n := len(env.eng.Calls()); n != 0 {
		t.Fatalf("no remote calls expected, got %d", n)
	}
}

func TestCoursePlanGenerateUpstreamFailure(t *testing.T) {
	eng := mock.New().Fail("List specific skills", errors.New("503 from upstream"))
	env := newTestEnv(t, eng)
	svc := NewCoursePlanService(env.plans, env.runner, env.log)
	ctx := context.Background()
	owner := uuid.New()

	plan, _ := svc.Create(ctx, owner, "Acro", "direction")
	_, err := svc.Generate(ctx, owner, plan.ID)
	requireStatus(t, err, http.StatusBadGateway)
	if !strings.Contains(err.Error(), "503 from upstream") {
		t.Fatalf("expected upstream cause, got %v", err)
	}
}

func TestCoursePlanUpdateDirection(t *testing.T) {
	env := newTestEnv(t, mock.New())
	svc := NewCoursePlanService(env.plans, env.runner, env.log)
	ctx := context.Background()
	owner := uuid.New()

	plan, _ := svc.Create(ctx, owner, "Acro", "old")
	dir := "new direction"
	got, err := svc.UpdateDirection(ctx, owner, plan.ID, nil, &dir)
	if err != nil {
		t.Fatalf("UpdateDirection: %v", err)
	}
	if got.PlanJSON != dir || got.Title != "Acro" {
		t.Fatalf("unexpected plan: %+v", got)
	}
	list, _ := svc.List(ctx, owner)
	if len(list) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(list))
	}
}

func TestCoursePlanListIsScopedToOwner(t *testing.T) {
	env := newTestEnv(t, mock.New())
	svc := NewCoursePlanService(env.plans, env.runner, env.log)
	ctx := context.Background()

	owner := uuid.New()
	testutil.SeedCoursePlan(t, ctx, env.db, owner, "first")
	testutil.SeedCoursePlan(t, ctx, env.db, owner, "second")
	testutil.SeedCoursePlan(t, ctx, env.db, uuid.New(), "someone else")

	plans, err := svc.List(ctx, owner)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("expected 2 plans, got %d", len(plans))
	}
	for _, p := range plans {
		if p.OwnerUserID != owner {
			t.Fatalf("listed another owner's plan: %+v", p)
		}
	}
}

func TestCoursePlanGenerateSendsDirectionVerbatim(t *testing.T) {
	env := newTestEnv(t, scriptedPlanEngine(planJSONReply))
	svc := NewCoursePlanService(env.plans, env.runner, env.log)
	ctx := context.Background()
	owner := uuid.New()

	direction := `Juggling for ${goals} fans, $1 entry, C:\tmp`
	plan, _ := svc.Create(ctx, owner, "Juggling", direction)
	if _, err := svc.Generate(ctx, owner, plan.ID); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	calls := env.eng.Calls()
	if len(calls) != 4 {
		t.Fatalf("expected 4 calls, got %d", len(calls))
	}
	if got := calls[0].Messages[1].Content; !strings.HasPrefix(got, "Course direction: "+direction+"\n\n") {
		t.Fatalf("inventory prompt rewrote the direction: %q", got)
	}
	for _, c := range calls[1:] {
		if c.Messages[1].Content != direction {
			t.Fatalf("direction turn changed: %q", c.Messages[1].Content)
		}
	}
}
