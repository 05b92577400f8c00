package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/learninglab-backend/internal/data/repos"
	"github.com/yungbote/learninglab-backend/internal/domain"
	"github.com/yungbote/learninglab-backend/internal/pkg/dbctx"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

type UsageService interface {
	Summary(ctx context.Context, ownerUserID uuid.UUID, since time.Time) (domain.UsageTotals, error)
	// RunCalls returns the call logs of a run, restricted to the owner's calls.
	RunCalls(ctx context.Context, ownerUserID, runID uuid.UUID) ([]*domain.CallLog, error)
}

type usageService struct {
	log      *logger.Logger
	callLogs repos.CallLogRepo
}

func NewUsageService(callLogs repos.CallLogRepo, baseLog *logger.Logger) UsageService {
	return &usageService{
		log:      baseLog.With("service", "UsageService"),
		callLogs: callLogs,
	}
}

func (s *usageService) Summary(ctx context.Context, ownerUserID uuid.UUID, since time.Time) (domain.UsageTotals, error) {
	totals, err := s.callLogs.UsageByOwner(dbctx.Context{Ctx: ctx}, ownerUserID, since)
	if err != nil {
		return domain.UsageTotals{}, fmt.Errorf("usage by owner: %w", err)
	}
	return totals, nil
}

func (s *usageService) RunCalls(ctx context.Context, ownerUserID, runID uuid.UUID) ([]*domain.CallLog, error) {
	logs, err := s.callLogs.ListByRun(dbctx.Context{Ctx: ctx}, runID)
	if err != nil {
		return nil, fmt.Errorf("list run calls: %w", err)
	}
	out := make([]*domain.CallLog, 0, len(logs))
	for _, l := range logs {
		if l.OwnerUserID != nil && *l.OwnerUserID == ownerUserID {
			out = append(out, l)
		}
	}
	return out, nil
}
