package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CoursePlan is a course idea written by its owner (PlanJSON, the "direction") plus the
// last generated curriculum.
type CoursePlan struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Title           string         `gorm:"column:title" json:"title"`
	PlanJSON        string         `gorm:"column:plan_json" json:"plan_json"`
	GeneratedJSON   datatypes.JSON `gorm:"column:generated_json" json:"generated_json,omitempty"`
	OpenAIResponses string         `gorm:"column:openai_responses" json:"openai_responses,omitempty"`
	LastGenerated   *time.Time     `gorm:"column:last_generated;index" json:"last_generated,omitempty"`
	LastRunID       *uuid.UUID     `gorm:"type:uuid;column:last_run_id" json:"last_run_id,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CoursePlan) TableName() string { return "course_plan" }

func (p *CoursePlan) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
