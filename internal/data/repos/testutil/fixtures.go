package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/learninglab-backend/internal/domain"
)

func SeedCoursePlan(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerUserID uuid.UUID, direction string) *domain.CoursePlan {
	tb.Helper()
	p := &domain.CoursePlan{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		Title:       "plan",
		PlanJSON:    direction,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed course plan: %v", err)
	}
	return p
}

// SeedCallLog stores one ledger row for runID. A non-empty errMsg marks it failed.
func SeedCallLog(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerUserID, runID uuid.UUID, label string, tokens int, errMsg string) *domain.CallLog {
	tb.Helper()
	row := &domain.CallLog{
		ID:          uuid.New(),
		RunID:       runID,
		OwnerUserID: &ownerUserID,
		Subject:     "test",
		Step:        label,
		Label:       label,
		Prompt:      datatypes.JSON([]byte("[]")),
		Config:      datatypes.JSON([]byte("{}")),
		Success:     errMsg == "",
		Error:       errMsg,
		TotalTokens: tokens,
		CalledAt:    time.Now().UTC(),
	}
	if errMsg == "" {
		row.PromptTokens = tokens
	} else {
		row.ErrorKind = "transport failure"
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed call log: %v", err)
	}
	return row
}
