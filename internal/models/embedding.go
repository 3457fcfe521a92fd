package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// EmbeddingDim is the fixed dimensionality of stored vectors
// (text-embedding-3-small). Vectors from providers with other
// dimensionalities must not be written to this table.
const EmbeddingDim = 1536

// Embedding is one write-once vector row per text chunk. Provider is
// recorded because vectors from different providers are not comparable;
// searches restrict to a single provider.
type Embedding struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	SessionID uuid.UUID  `gorm:"type:uuid;index;not null" json:"session_id"`
	BlockID   *uuid.UUID `gorm:"type:uuid" json:"block_id,omitempty"`

	Provider  string          `gorm:"type:varchar(50);not null;index" json:"provider"`
	Embedding pgvector.Vector `gorm:"type:vector(1536);not null" json:"-"`
	Text      string          `gorm:"type:text;not null" json:"text"`

	CreatedAt time.Time `json:"created_at"`
}

func (e *Embedding) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
