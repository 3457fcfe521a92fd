package services

import (
	"context"
	"strings"
	"time"

	"secondbrain_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DefaultAIJobService struct {
	db *gorm.DB
}

func NewAIJobServiceDB(db *gorm.DB) AIJobServiceDB {
	return &DefaultAIJobService{db: db}
}

// CreateJob inserts a pending job for the session. The partial unique index
// on (session_id) WHERE non-terminal rejects a second live job; that
// violation is surfaced as ErrActiveJobExists.
func (s *DefaultAIJobService) CreateJob(ctx context.Context, userID, sessionID uuid.UUID, creditsUsed int) (*models.AIJob, error) {
	job := &models.AIJob{
		UserID:      userID,
		SessionID:   sessionID,
		JobType:     "session_processing",
		CreditsUsed: creditsUsed,
		Status:      models.AIJobPending,
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		if strings.Contains(err.Error(), "idx_ai_jobs_active_session") {
			return nil, ErrActiveJobExists
		}
		return nil, err
	}
	return job, nil
}

func (s *DefaultAIJobService) GetJob(ctx context.Context, jobID uuid.UUID) (*models.AIJob, error) {
	var job models.AIJob
	err := s.db.WithContext(ctx).Where("id = ?", jobID).First(&job).Error
	if err == gorm.ErrRecordNotFound {
		return nil, gorm.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkProcessing claims a job for a delivery attempt. Redelivered jobs that
// are already processing (a worker crashed mid-run) are claimable again;
// terminal jobs are not, which is the status-regression guard. Every claim
// counts one attempt.
func (s *DefaultAIJobService) MarkProcessing(ctx context.Context, jobID uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&models.AIJob{}).
		Where("id = ? AND status IN ?", jobID,
			[]models.AIJobStatus{models.AIJobPending, models.AIJobProcessing}).
		Updates(map[string]interface{}{
			"status":     models.AIJobProcessing,
			"started_at": now,
			"attempts":   gorm.Expr("attempts + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *DefaultAIJobService) MarkCompleted(ctx context.Context, jobID uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.AIJob{}).
		Where("id = ? AND status = ?", jobID, models.AIJobProcessing).
		Updates(map[string]interface{}{
			"status":       models.AIJobCompleted,
			"completed_at": time.Now().UTC(),
		}).Error
}

func (s *DefaultAIJobService) MarkFailed(ctx context.Context, jobID uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.AIJob{}).
		Where("id = ? AND status IN ?", jobID,
			[]models.AIJobStatus{models.AIJobPending, models.AIJobProcessing}).
		Updates(map[string]interface{}{
			"status":       models.AIJobFailed,
			"completed_at": time.Now().UTC(),
		}).Error
}
