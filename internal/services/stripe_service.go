package services

import (
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
)

// CreditPackage is a purchasable bundle of AI credits.
type CreditPackage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Credits     int    `json:"credits"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

var creditPackages = []CreditPackage{
	{ID: "starter", Name: "Starter", Credits: 10, AmountCents: 499, Currency: "usd"},
	{ID: "standard", Name: "Standard", Credits: 50, AmountCents: 1999, Currency: "usd"},
	{ID: "pro", Name: "Pro", Credits: 120, AmountCents: 3999, Currency: "usd"},
}

type StripeService struct {
	secretKey     string
	webhookSecret string
	successURL    string
	cancelURL     string
}

func NewStripeService(secretKey, webhookSecret, successURL, cancelURL string) *StripeService {
	stripe.Key = secretKey
	return &StripeService{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
	}
}

func (s *StripeService) Packages() []CreditPackage {
	return creditPackages
}

func (s *StripeService) PackageByID(id string) (CreditPackage, bool) {
	for _, pkg := range creditPackages {
		if pkg.ID == id {
			return pkg, true
		}
	}
	return CreditPackage{}, false
}

// CreateCheckoutSession opens a Stripe checkout for one credit package. The
// user id and credit count ride along as metadata; the webhook reads them
// back when the payment completes.
func (s *StripeService) CreateCheckoutSession(userID string, pkg CreditPackage) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(pkg.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("%d AI Credits (%s)", pkg.Credits, pkg.Name)),
					},
					UnitAmount: stripe.Int64(pkg.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		ClientReferenceID: stripe.String(userID),
		Metadata: map[string]string{
			"user_id":    userID,
			"credits":    fmt.Sprintf("%d", pkg.Credits),
			"package_id": pkg.ID,
		},
	}

	return session.New(params)
}

// HandleWebhook verifies the provider signature and decodes the event.
func (s *StripeService) HandleWebhook(payload []byte, signatureHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signatureHeader, s.webhookSecret)
}
