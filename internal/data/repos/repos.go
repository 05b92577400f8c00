package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/learninglab-backend/internal/data/repos/calls"
	"github.com/yungbote/learninglab-backend/internal/data/repos/planning"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

type CoursePlanRepo = planning.CoursePlanRepo

type CallLogRepo = calls.CallLogRepo

func NewCoursePlanRepo(db *gorm.DB, baseLog *logger.Logger) CoursePlanRepo {
	return planning.NewCoursePlanRepo(db, baseLog)
}

func NewCallLogRepo(db *gorm.DB, baseLog *logger.Logger) CallLogRepo {
	return calls.NewCallLogRepo(db, baseLog)
}
