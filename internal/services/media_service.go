package services

import (
	"context"
	"fmt"
	"strings"

	"secondbrain_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var contentTypeExtensions = map[string]string{
	"audio/m4a":  "m4a",
	"audio/mp4":  "m4a",
	"audio/mpeg": "mp3",
	"audio/mp3":  "mp3",
	"audio/wav":  "wav",
	"audio/webm": "webm",
	"audio/ogg":  "ogg",
	"audio/aac":  "aac",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/heic": "heic",
	"image/heif": "heif",
}

var allowedContentTypes = map[models.MediaType][]string{
	models.MediaTypeAudio: {
		"audio/m4a", "audio/mp4", "audio/mpeg", "audio/mp3",
		"audio/wav", "audio/webm", "audio/ogg", "audio/aac",
	},
	models.MediaTypeImage: {
		"image/jpeg", "image/jpg", "image/png",
		"image/webp", "image/heic", "image/heif",
	},
}

// PresignedUpload is what the client needs to perform a direct upload and
// later commit it.
type PresignedUpload struct {
	MediaID   uuid.UUID `json:"media_id"`
	ObjectKey string    `json:"object_key"`
	UploadURL string    `json:"upload_url"`
}

// MediaService manages the MediaFile lifecycle: pending on URL issuance,
// uploaded on client confirmation, and bucket cleanup on session deletion.
type MediaService struct {
	db       *gorm.DB
	sessions SessionServiceDB
	storage  ObjectStorage
}

func NewMediaService(db *gorm.DB, sessions SessionServiceDB, storage ObjectStorage) *MediaService {
	return &MediaService{db: db, sessions: sessions, storage: storage}
}

func ValidateContentType(mediaType models.MediaType, contentType string) bool {
	for _, allowed := range allowedContentTypes[mediaType] {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}

func extensionFor(contentType string) string {
	if ext, ok := contentTypeExtensions[strings.ToLower(contentType)]; ok {
		return ext
	}
	return "bin"
}

// objectKey groups files by session for cleanup and uses a UUID to prevent
// collisions: sessions/{session_id}/{type}/{uuid}.{ext}
func objectKey(sessionID uuid.UUID, mediaType models.MediaType, contentType string) string {
	return fmt.Sprintf("sessions/%s/%s/%s.%s", sessionID, mediaType, uuid.New(), extensionFor(contentType))
}

// CreatePresignedUpload validates the request, records a pending MediaFile
// and returns the signed PUT URL. The session must exist and belong to the
// caller, but may be in any status: late media for a processed session is
// allowed.
func (s *MediaService) CreatePresignedUpload(ctx context.Context, sessionID, userID uuid.UUID, mediaType models.MediaType, contentType string) (*PresignedUpload, error) {
	if _, err := s.sessions.GetSession(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	if !ValidateContentType(mediaType, contentType) {
		return nil, fmt.Errorf("content type %q is not allowed for media type %q", contentType, mediaType)
	}

	key := objectKey(sessionID, mediaType, contentType)
	url, err := s.storage.IssueUploadURL(ctx, key, contentType)
	if err != nil {
		return nil, fmt.Errorf("issue upload url: %w", err)
	}

	media := &models.MediaFile{
		SessionID:   sessionID,
		Type:        mediaType,
		ObjectKey:   key,
		ContentType: contentType,
		Status:      models.MediaPending,
	}
	if err := s.db.WithContext(ctx).Create(media).Error; err != nil {
		return nil, err
	}

	return &PresignedUpload{MediaID: media.ID, ObjectKey: key, UploadURL: url}, nil
}

// CommitUpload flips pending→uploaded once the client confirms the PUT
// succeeded. The update is scoped to media under the caller's own sessions,
// so committing twice, an unknown id, or another user's file all fail the
// same way.
func (s *MediaService) CommitUpload(ctx context.Context, mediaID, userID uuid.UUID, sizeBytes int64) (*models.MediaFile, error) {
	ownedSessions := s.db.Model(&models.Session{}).Select("id").Where("user_id = ?", userID)

	result := s.db.WithContext(ctx).Model(&models.MediaFile{}).
		Where("id = ? AND status = ? AND session_id IN (?)", mediaID, models.MediaPending, ownedSessions).
		Updates(map[string]interface{}{
			"status":     models.MediaUploaded,
			"size_bytes": sizeBytes,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrMediaNotFound
	}

	var media models.MediaFile
	if err := s.db.WithContext(ctx).Where("id = ?", mediaID).First(&media).Error; err != nil {
		return nil, err
	}
	return &media, nil
}

// ListUploadedBySession returns the media the processing pipeline can work
// with: confirmed uploads only, pending rows may have no object behind them.
func (s *MediaService) ListUploadedBySession(ctx context.Context, sessionID uuid.UUID) ([]models.MediaFile, error) {
	var files []models.MediaFile
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND status = ?", sessionID, models.MediaUploaded).
		Order("created_at ASC").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// PurgeSessionObjects deletes the session's bucket objects ahead of a
// session delete. Best effort: an object that fails to delete is logged and
// skipped, the DB rows go away regardless.
func (s *MediaService) PurgeSessionObjects(ctx context.Context, sessionID, userID uuid.UUID) error {
	if _, err := s.sessions.GetSession(ctx, sessionID, userID); err != nil {
		return err
	}

	var files []models.MediaFile
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Find(&files).Error; err != nil {
		return err
	}

	for _, file := range files {
		if err := s.storage.DeleteObject(ctx, file.ObjectKey); err != nil {
			log.Warn().Err(err).Str("object_key", file.ObjectKey).Msg("Bucket object delete failed, leaving orphan")
		}
	}
	return nil
}
