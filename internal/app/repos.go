package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/learninglab-backend/internal/data/repos"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

type Repos struct {
	CoursePlan repos.CoursePlanRepo
	CallLog    repos.CallLogRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		CoursePlan: repos.NewCoursePlanRepo(db, log),
		CallLog:    repos.NewCallLogRepo(db, log),
	}
}
