package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/learninglab-backend/internal/chain"
	"github.com/yungbote/learninglab-backend/internal/inference/engine/mock"
	"github.com/yungbote/learninglab-backend/internal/pkg/dbctx"
)

func TestChainRunnerPersistsAndPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	eng := mock.New().When("first", "one").Fail("second", errors.New("nope"))
	env := newTestEnv(t, eng, WithEvents(pub), WithDefaults(chain.DefaultConfig().With(chain.WithModel("test-model"))))

	a := chain.NewLabel[string]("a")
	b := chain.NewLabel[string]("b")
	c, err := chain.NewBuilder(env.runner.Defaults()).
		Then(
			chain.Prompt("a", a, chain.Text()).User("first"),
			chain.Prompt("b", b, chain.Text()).User("second"),
		).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	owner := uuid.New()
	res := env.runner.Run(context.Background(), c, Subject{Kind: "test", OwnerUserID: owner})
	if !res.Has(a) || !res.HasError(b) {
		t.Fatalf("unexpected result: has a=%v err b=%v", res.Has(a), res.HasError(b))
	}

	logs, err := env.callLogs.ListByRun(dbctx.Context{Ctx: context.Background()}, res.RunID())
	if err != nil || len(logs) != 2 {
		t.Fatalf("expected 2 call logs, got %d (%v)", len(logs), err)
	}
	byStep := map[string]bool{}
	for _, l := range logs {
		byStep[l.Step] = l.Success
		if l.Model != "test-model" {
			t.Fatalf("unexpected model %q", l.Model)
		}
		if !l.Success && (l.ErrorKind != chain.ErrTransport.Error() || l.Error == "") {
			t.Fatalf("failure row missing error details: %+v", l)
		}
	}
	if !byStep["a"] || byStep["b"] {
		t.Fatalf("unexpected outcomes: %v", byStep)
	}

	events := pub.events["calls:"+owner.String()]
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
}

func TestCallLogsFromResultUsage(t *testing.T) {
	env := newTestEnv(t, mock.New().When("hello", "hi there"))
	l := chain.NewLabel[string]("greeting")
	c, _ := chain.NewBuilder(chain.DefaultConfig()).Then(chain.Prompt("greet", l, chain.Text()).User("hello")).Build()

	res := c.Run(context.Background(), env.runner.caller)
	rows := CallLogsFromResult(res, Subject{Kind: "greeting"})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.RunID != res.RunID() || row.OwnerUserID != nil || row.Completion != "hi there" {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.TotalTokens != row.PromptTokens+row.CompletionTokens || row.CompletionTokens != 2 {
		t.Fatalf("unexpected usage: %+v", row)
	}
}
