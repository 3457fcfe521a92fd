package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment records one credit-purchase attempt. The unique Stripe identifiers
// make webhook handling idempotent: a redelivered checkout.session.completed
// event cannot grant credits twice.
type Payment struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`

	StripeCheckoutSessionID string `gorm:"uniqueIndex;not null" json:"-"`
	StripePaymentIntentID   string `gorm:"index" json:"-"`

	AmountCents   int64         `gorm:"not null" json:"amount_cents"`
	Currency      string        `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	CreditsAmount int           `gorm:"not null" json:"credits_amount"`
	PackageID     string        `gorm:"type:varchar(50)" json:"package_id,omitempty"`
	Status        PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
