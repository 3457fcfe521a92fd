package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MediaType string

const (
	MediaTypeAudio MediaType = "audio"
	MediaTypeImage MediaType = "image"
)

type MediaStatus string

const (
	MediaPending  MediaStatus = "pending"  // upload URL issued, awaiting upload
	MediaUploaded MediaStatus = "uploaded" // client confirmed the upload
)

// MediaFile tracks an object-storage object. The bytes live in the bucket,
// never in the database. Pending rows that are never committed are garbage
// collected out of band.
type MediaFile struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;index;not null" json:"session_id"`

	Type        MediaType   `gorm:"type:varchar(20);not null" json:"type"`
	ObjectKey   string      `gorm:"unique;not null" json:"object_key"`
	ContentType string      `gorm:"not null" json:"content_type"`
	SizeBytes   *int64      `json:"size_bytes,omitempty"`
	Status      MediaStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (f *MediaFile) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
