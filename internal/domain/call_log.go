package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CallLog is one persisted ledger entry of a chain run.
type CallLog struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RunID            uuid.UUID      `gorm:"type:uuid;not null;index" json:"run_id"`
	OwnerUserID      *uuid.UUID     `gorm:"type:uuid;index" json:"owner_user_id,omitempty"`
	Subject          string         `gorm:"column:subject;not null;index" json:"subject"`
	SubjectID        *uuid.UUID     `gorm:"type:uuid;column:subject_id;index" json:"subject_id,omitempty"`
	Step             string         `gorm:"column:step;not null" json:"step"`
	Label            string         `gorm:"column:label;not null" json:"label"`
	Model            string         `gorm:"column:model" json:"model"`
	Prompt           datatypes.JSON `gorm:"column:prompt" json:"prompt"`
	Config           datatypes.JSON `gorm:"column:config" json:"config"`
	Completion       string         `gorm:"column:completion" json:"completion,omitempty"`
	Success          bool           `gorm:"column:success;not null" json:"success"`
	ErrorKind        string         `gorm:"column:error_kind" json:"error_kind,omitempty"`
	Error            string         `gorm:"column:error" json:"error,omitempty"`
	PromptTokens     int            `gorm:"column:prompt_tokens;not null;default:0" json:"prompt_tokens"`
	CompletionTokens int            `gorm:"column:completion_tokens;not null;default:0" json:"completion_tokens"`
	TotalTokens      int            `gorm:"column:total_tokens;not null;default:0" json:"total_tokens"`
	ElapsedMS        int64          `gorm:"column:elapsed_ms;not null;default:0" json:"elapsed_ms"`
	CalledAt         time.Time      `gorm:"column:called_at;not null;index" json:"called_at"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
}

func (CallLog) TableName() string { return "call_log" }

func (l *CallLog) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// UsageTotals is token usage summed over a set of call logs.
type UsageTotals struct {
	Calls            int64 `json:"calls"`
	Failures         int64 `json:"failures"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}
