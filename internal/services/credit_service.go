package services

import (
	"context"
	"fmt"

	"secondbrain_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionProcessingCost is the credit price of one AI-enriched finalize.
const SessionProcessingCost = 1

// TrialCredits is the balance seeded when a user row is first created.
const TrialCredits = 3

// CreditService implements CreditLedger on the users table. Debit is a
// single conditional UPDATE, so it is safe under concurrent callers without
// any in-process locking and never holds the row lock across other I/O.
type CreditService struct {
	db *gorm.DB
}

func NewCreditService(db *gorm.DB) *CreditService {
	return &CreditService{db: db}
}

func (s *CreditService) HasCredits(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	balance, err := s.GetBalance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance >= amount, nil
}

// Debit decrements the balance iff it is at least amount. Returns false with
// no mutation when the balance is insufficient; that is a normal outcome the
// caller branches on, not an error.
func (s *CreditService) Debit(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	if amount < 0 {
		return false, fmt.Errorf("cannot debit negative amount %d", amount)
	}
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND credits >= ?", userID, amount).
		UpdateColumn("credits", gorm.Expr("credits - ?", amount))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Credit increments the balance. Idempotency of the triggering event (a
// payment webhook) is the caller's responsibility, enforced through the
// Payment table's unique Stripe identifiers.
func (s *CreditService) Credit(ctx context.Context, userID uuid.UUID, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("credits", gorm.Expr("credits + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %s not found", userID)
	}
	return nil
}

func (s *CreditService) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("credits").Where("id = ?", userID).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return user.Credits, nil
}
