package calls

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/learninglab-backend/internal/domain"
	"github.com/yungbote/learninglab-backend/internal/pkg/dbctx"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

type CallLogRepo interface {
	Create(dbc dbctx.Context, logs []*domain.CallLog) ([]*domain.CallLog, error)
	ListByRun(dbc dbctx.Context, runID uuid.UUID) ([]*domain.CallLog, error)
	ListBySubject(dbc dbctx.Context, subject string, subjectID uuid.UUID) ([]*domain.CallLog, error)
	// UsageByOwner sums token usage for calls made on behalf of ownerUserID since the given time.
	UsageByOwner(dbc dbctx.Context, ownerUserID uuid.UUID, since time.Time) (domain.UsageTotals, error)
}

type callLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCallLogRepo(db *gorm.DB, baseLog *logger.Logger) CallLogRepo {
	return &callLogRepo{
		db:  db,
		log: baseLog.With("repo", "CallLogRepo"),
	}
}

func (r *callLogRepo) Create(dbc dbctx.Context, logs []*domain.CallLog) ([]*domain.CallLog, error) {
	if len(logs) == 0 {
		return []*domain.CallLog{}, nil
	}
	if err := dbc.DB(r.db).CreateInBatches(&logs, 100).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *callLogRepo) ListByRun(dbc dbctx.Context, runID uuid.UUID) ([]*domain.CallLog, error) {
	var out []*domain.CallLog
	if runID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("run_id = ?", runID).
		Order("called_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *callLogRepo) ListBySubject(dbc dbctx.Context, subject string, subjectID uuid.UUID) ([]*domain.CallLog, error) {
	var out []*domain.CallLog
	if subject == "" || subjectID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("subject = ? AND subject_id = ?", subject, subjectID).
		Order("called_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *callLogRepo) UsageByOwner(dbc dbctx.Context, ownerUserID uuid.UUID, since time.Time) (domain.UsageTotals, error) {
	var out domain.UsageTotals
	if ownerUserID == uuid.Nil {
		return out, nil
	}
	err := dbc.DB(r.db).
		Model(&domain.CallLog{}).
		Select(`COUNT(*) AS calls,
			COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0) AS failures,
			COALESCE(SUM(prompt_tokens), 0) AS prompt_tokens,
			COALESCE(SUM(completion_tokens), 0) AS completion_tokens,
			COALESCE(SUM(total_tokens), 0) AS total_tokens`).
		Where("owner_user_id = ? AND called_at >= ?", ownerUserID, since).
		Scan(&out).Error
	return out, err
}
