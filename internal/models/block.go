package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BlockType string

const (
	BlockTypeVoice  BlockType = "voice"
	BlockTypeImage  BlockType = "image"
	BlockTypeMarker BlockType = "marker"
	BlockTypeText   BlockType = "text"
)

func ValidBlockType(t BlockType) bool {
	switch t {
	case BlockTypeVoice, BlockTypeImage, BlockTypeMarker, BlockTypeText:
		return true
	}
	return false
}

// SessionBlock is one atomic piece of captured content. Blocks are
// append-only and immutable; Seq preserves insertion order, which the AI
// pipeline relies on to reconstruct the session narrative.
type SessionBlock struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;index;not null" json:"session_id"`
	Seq       int64     `gorm:"index;not null" json:"seq"`
	BlockType BlockType `gorm:"type:varchar(50);not null" json:"block_type"`

	TextContent string `gorm:"type:text" json:"text_content,omitempty"`
	MediaURL    string `json:"media_url,omitempty"`
	// Metadata is a free-form JSON blob supplied by the client.
	Metadata string `gorm:"type:text" json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (b *SessionBlock) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
