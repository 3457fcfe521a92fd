package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AIJobStatus string

const (
	AIJobPending    AIJobStatus = "pending"
	AIJobProcessing AIJobStatus = "processing"
	AIJobCompleted  AIJobStatus = "completed"
	AIJobFailed     AIJobStatus = "failed"
)

func (s AIJobStatus) Terminal() bool {
	return s == AIJobCompleted || s == AIJobFailed
}

// AIJob tracks one unit of asynchronous AI enrichment work for a session.
// A partial unique index (see database.InitDB) guarantees at most one
// non-terminal job per session.
type AIJob struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	SessionID uuid.UUID `gorm:"type:uuid;index;not null" json:"session_id"`

	JobType     string      `gorm:"type:varchar(50);not null;default:'session_processing'" json:"job_type"`
	CreditsUsed int         `gorm:"not null;default:1" json:"credits_used"`
	Status      AIJobStatus `gorm:"type:varchar(50);not null;default:'pending';index" json:"status"`
	Attempts    int         `gorm:"not null;default:0" json:"attempts"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (j *AIJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
