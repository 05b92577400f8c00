package planning

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/learninglab-backend/internal/data/repos/testutil"
	"github.com/yungbote/learninglab-backend/internal/domain"
	"github.com/yungbote/learninglab-backend/internal/pkg/dbctx"
)

func TestCoursePlanRepo(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewCoursePlanRepo(db, testutil.Logger(t))

	owner := uuid.New()
	plan := &domain.CoursePlan{OwnerUserID: owner, Title: "Acroyoga", PlanJSON: "weekly beginner jam"}
	created, err := repo.Create(dbc, []*domain.CoursePlan{plan})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 || created[0].ID == uuid.Nil {
		t.Fatalf("Create: expected generated id, got %+v", created)
	}

	got, err := repo.GetByID(dbc, plan.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v %v", got, err)
	}
	if got.PlanJSON != "weekly beginner jam" {
		t.Fatalf("GetByID: plan_json=%q", got.PlanJSON)
	}

	missing, err := repo.GetByID(dbc, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID missing: %v %v", missing, err)
	}

	now := time.Now().UTC()
	if err := repo.UpdateFields(dbc, plan.ID, map[string]interface{}{
		"generated_json":   datatypes.JSON([]byte(`{"levels":[]}`)),
		"openai_responses": "a\n\n---\n\nb",
		"last_generated":   now,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, _ = repo.GetByID(dbc, plan.ID)
	if string(got.GeneratedJSON) != `{"levels":[]}` || got.LastGenerated == nil {
		t.Fatalf("UpdateFields not applied: %+v", got)
	}

	list, err := repo.ListByOwner(dbc, owner)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByOwner: len=%d err=%v", len(list), err)
	}
}

func TestCoursePlanRepoTxRollback(t *testing.T) {
	db := testutil.DB(t)
	repo := NewCoursePlanRepo(db, testutil.Logger(t))

	tx := db.Begin()
	plan := &domain.CoursePlan{OwnerUserID: uuid.New(), PlanJSON: "x"}
	if _, err := repo.Create(dbctx.Context{Ctx: context.Background(), Tx: tx}, []*domain.CoursePlan{plan}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := tx.Rollback().Error; err != nil {
		t.Fatalf("rollback: %v", err)
	}
	got, err := repo.GetByID(dbctx.Context{Ctx: context.Background()}, plan.ID)
	if err != nil || got != nil {
		t.Fatalf("expected no plan after rollback, got %v %v", got, err)
	}
}
