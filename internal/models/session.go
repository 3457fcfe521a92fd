package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionStatus is the closed set of lifecycle states for a capture session.
// Transitions are driven only through conditional updates (see
// services.SessionServiceDB.TransitionStatus); handlers never write the
// column directly.
type SessionStatus string

const (
	SessionOpen              SessionStatus = "open"
	SessionPendingProcessing SessionStatus = "pending_processing"
	SessionProcessing        SessionStatus = "processing"
	SessionProcessed         SessionStatus = "processed"
	SessionNoCredits         SessionStatus = "no_credits"
	SessionFailed            SessionStatus = "failed"

	// SessionRawOnly is a legacy synonym for SessionNoCredits kept so old
	// rows still parse. New code must never write it.
	SessionRawOnly SessionStatus = "raw_only"
)

// Terminal reports whether the finalize workflow drives any further
// transitions out of s.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionNoCredits, SessionProcessed, SessionFailed, SessionRawOnly:
		return true
	}
	return false
}

type SessionType string

const (
	SessionTypeVoice SessionType = "voice"
	SessionTypeImage SessionType = "image"
	SessionTypeMixed SessionType = "mixed"
)

func ValidSessionType(t SessionType) bool {
	switch t {
	case SessionTypeVoice, SessionTypeImage, SessionTypeMixed:
		return true
	}
	return false
}

type Session struct {
	ID          uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	UserID      uuid.UUID     `gorm:"type:uuid;index;not null" json:"user_id"`
	SessionType SessionType   `gorm:"type:varchar(50);not null" json:"session_type"`
	Status      SessionStatus `gorm:"type:varchar(50);not null;default:'open';index" json:"status"`
	AISummary   string        `gorm:"type:text" json:"ai_summary,omitempty"`

	// SuggestedTitle is model-generated during processing; the client may
	// show or discard it.
	SuggestedTitle string `gorm:"type:varchar(200)" json:"suggested_title,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	Blocks []SessionBlock `gorm:"foreignKey:SessionID" json:"-"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
