package services

import (
	"context"
	"time"

	"secondbrain_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// PaymentService records credit purchases and grants the credits. The
// Payment row keyed by the checkout session id is the idempotency record: a
// redelivered webhook finds a completed row and does nothing.
type PaymentService struct {
	db *gorm.DB
}

func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{db: db}
}

// RecordPendingCheckout creates the audit row when a checkout session is
// opened, before the user has paid.
func (s *PaymentService) RecordPendingCheckout(ctx context.Context, userID uuid.UUID, checkoutSessionID string, pkg CreditPackage) (*models.Payment, error) {
	payment := &models.Payment{
		UserID:                  userID,
		StripeCheckoutSessionID: checkoutSessionID,
		AmountCents:             pkg.AmountCents,
		Currency:                pkg.Currency,
		CreditsAmount:           pkg.Credits,
		PackageID:               pkg.ID,
		Status:                  models.PaymentPending,
	}
	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

// CompleteCheckout marks the payment completed and credits the user, in one
// transaction. Returns false when the payment was already completed (the
// webhook was redelivered); the ledger is untouched in that case.
func (s *PaymentService) CompleteCheckout(ctx context.Context, userID uuid.UUID, checkoutSessionID, paymentIntentID string, credits int, amountCents int64, packageID string) (bool, error) {
	credited := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		err := tx.Where("stripe_checkout_session_id = ?", checkoutSessionID).First(&payment).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			// Webhook arrived for a checkout we never recorded (opened from
			// another client, or the pending insert was lost). Create the
			// row now so the audit trail stays complete.
			now := time.Now().UTC()
			payment = models.Payment{
				UserID:                  userID,
				StripeCheckoutSessionID: checkoutSessionID,
				StripePaymentIntentID:   paymentIntentID,
				AmountCents:             amountCents,
				CreditsAmount:           credits,
				PackageID:               packageID,
				Currency:                "usd",
				Status:                  models.PaymentCompleted,
				CompletedAt:             &now,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		case payment.Status == models.PaymentCompleted:
			// Duplicate delivery; nothing to do.
			return nil
		default:
			now := time.Now().UTC()
			updates := map[string]interface{}{
				"status":                   models.PaymentCompleted,
				"stripe_payment_intent_id": paymentIntentID,
				"completed_at":             now,
			}
			result := tx.Model(&models.Payment{}).
				Where("id = ? AND status <> ?", payment.ID, models.PaymentCompleted).
				Updates(updates)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return nil
			}
		}

		result := tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("credits", gorm.Expr("credits + ?", credits))
		if result.Error != nil {
			return result.Error
		}
		credited = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	if credited {
		log.Info().
			Str("user_id", userID.String()).
			Str("checkout_session", checkoutSessionID).
			Int("credits", credits).
			Msg("Credits granted for completed payment")
	}
	return credited, nil
}

// ListPayments returns a user's purchase history, newest first.
func (s *PaymentService) ListPayments(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}
