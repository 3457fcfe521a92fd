package services

import (
	"context"
	"time"

	"secondbrain_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DefaultSessionService struct {
	db *gorm.DB
}

func NewSessionServiceDB(db *gorm.DB) SessionServiceDB {
	return &DefaultSessionService{db: db}
}

func (s *DefaultSessionService) CreateSession(ctx context.Context, userID uuid.UUID, sessionType models.SessionType) (*models.Session, error) {
	session := &models.Session{
		UserID:      userID,
		SessionType: sessionType,
		Status:      models.SessionOpen,
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (s *DefaultSessionService) GetSession(ctx context.Context, sessionID, userID uuid.UUID) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", sessionID, userID).
		First(&session).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *DefaultSessionService) GetSessionByID(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// AddBlock appends a block to an OPEN session owned by userID. Blocks are
// immutable once created; Seq assignment keeps insertion order.
func (s *DefaultSessionService) AddBlock(ctx context.Context, sessionID, userID uuid.UUID, block *models.SessionBlock) (*models.SessionBlock, error) {
	session, err := s.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionOpen {
		return nil, ErrSessionNotOpen
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		if err := tx.Model(&models.SessionBlock{}).
			Where("session_id = ?", sessionID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}
		block.SessionID = sessionID
		block.Seq = maxSeq + 1
		return tx.Create(block).Error
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

func (s *DefaultSessionService) ListBlocks(ctx context.Context, sessionID uuid.UUID) ([]models.SessionBlock, error) {
	var blocks []models.SessionBlock
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Find(&blocks).Error
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

func (s *DefaultSessionService) CountBlocks(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.SessionBlock{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}

// TransitionStatus conditionally moves a session from one status to another.
// The returned bool is the linearization result: false means another caller
// moved the session first (or it was never in `from`), and no row changed.
func (s *DefaultSessionService) TransitionStatus(ctx context.Context, sessionID uuid.UUID, from, to models.SessionStatus) (bool, error) {
	updates := map[string]interface{}{"status": to, "updated_at": time.Now().UTC()}
	if from == models.SessionOpen {
		updates["finalized_at"] = time.Now().UTC()
	}

	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND status = ?", sessionID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *DefaultSessionService) MarkProcessed(ctx context.Context, sessionID uuid.UUID, summary, title string) (bool, error) {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND status = ?", sessionID, models.SessionProcessing).
		Updates(map[string]interface{}{
			"status":          models.SessionProcessed,
			"ai_summary":      summary,
			"suggested_title": title,
			"processed_at":    now,
			"updated_at":      now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkFailed force-fails a session from any non-terminal processing state.
// Used by the pipeline's failure path and the reconciler sweep.
func (s *DefaultSessionService) MarkFailed(ctx context.Context, sessionID uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND status IN ?", sessionID,
			[]models.SessionStatus{models.SessionPendingProcessing, models.SessionProcessing}).
		Updates(map[string]interface{}{
			"status":     models.SessionFailed,
			"updated_at": time.Now().UTC(),
		}).Error
}

// DeleteSession removes a session and everything hanging off it: jobs,
// embeddings, media records, blocks, then the session row.
func (s *DefaultSessionService) DeleteSession(ctx context.Context, sessionID, userID uuid.UUID) error {
	session, err := s.GetSession(ctx, sessionID, userID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.AIJob{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.Embedding{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.MediaFile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.SessionBlock{}).Error; err != nil {
			return err
		}
		return tx.Delete(session).Error
	})
}
