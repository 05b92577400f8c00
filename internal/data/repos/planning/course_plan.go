package planning

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/learninglab-backend/internal/domain"
	"github.com/yungbote/learninglab-backend/internal/pkg/dbctx"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

type CoursePlanRepo interface {
	Create(dbc dbctx.Context, plans []*domain.CoursePlan) ([]*domain.CoursePlan, error)
	// GetByID returns nil, nil when the plan does not exist.
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.CoursePlan, error)
	ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) ([]*domain.CoursePlan, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type coursePlanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCoursePlanRepo(db *gorm.DB, baseLog *logger.Logger) CoursePlanRepo {
	return &coursePlanRepo{
		db:  db,
		log: baseLog.With("repo", "CoursePlanRepo"),
	}
}

func (r *coursePlanRepo) Create(dbc dbctx.Context, plans []*domain.CoursePlan) ([]*domain.CoursePlan, error) {
	if len(plans) == 0 {
		return []*domain.CoursePlan{}, nil
	}
	if err := dbc.DB(r.db).Create(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *coursePlanRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.CoursePlan, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var plan domain.CoursePlan
	err := dbc.DB(r.db).Where("id = ?", id).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *coursePlanRepo) ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) ([]*domain.CoursePlan, error) {
	var out []*domain.CoursePlan
	if ownerUserID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *coursePlanRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Model(&domain.CoursePlan{}).
		Where("id = ?", id).
		Updates(updates).Error
}
