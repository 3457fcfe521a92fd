package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"secondbrain_go_backend/internal/errors"
	"secondbrain_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v79"
)

func listPackagesHandler(stripeService *services.StripeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"packages": stripeService.Packages()})
	}
}

func createCheckoutHandler(stripeService *services.StripeService, paymentService *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}

		var request struct {
			PackageID string `json:"package_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			errors.HandleError(c, errors.New400Error(err.Error()))
			return
		}

		pkg, found := stripeService.PackageByID(request.PackageID)
		if !found {
			errors.HandleError(c, errors.New400Error("unknown credit package"))
			return
		}

		checkout, err := stripeService.CreateCheckoutSession(user.ID.String(), pkg)
		if err != nil {
			errors.HandleError(c, errors.New500Error(err))
			return
		}

		if _, err := paymentService.RecordPendingCheckout(c.Request.Context(), user.ID, checkout.ID, pkg); err != nil {
			errors.HandleError(c, errors.New500Error(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"checkout_session_id": checkout.ID,
			"checkout_url":        checkout.URL,
		})
	}
}

func paymentHistoryHandler(paymentService *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}

		payments, err := paymentService.ListPayments(c.Request.Context(), user.ID)
		if err != nil {
			errors.HandleError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"payments": payments})
	}
}

func stripeWebhookHandler(stripeService *services.StripeService, paymentService *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const MaxBodyBytes = int64(65536)
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
			return
		}

		signatureHeader := c.GetHeader("Stripe-Signature")
		event, err := stripeService.HandleWebhook(payload, signatureHeader)
		if err != nil {
			log.Warn().Err(err).Msg("Stripe webhook signature verification failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to verify webhook signature"})
			return
		}

		switch event.Type {
		case "checkout.session.completed":
			var session stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse checkout session"})
				return
			}

			if err := processCompletedCheckout(c, session, paymentService); err != nil {
				log.Error().Err(err).Str("checkout_session_id", session.ID).Msg("Checkout completion failed")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process checkout session"})
				return
			}

		default:
			log.Debug().Str("event_type", string(event.Type)).Msg("Unhandled Stripe event")
		}

		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

func processCompletedCheckout(c *gin.Context, session stripe.CheckoutSession, paymentService *services.PaymentService) error {
	userID, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		return fmt.Errorf("invalid user ID: %w", err)
	}

	credits, err := strconv.Atoi(session.Metadata["credits"])
	if err != nil {
		return fmt.Errorf("invalid credits metadata: %w", err)
	}

	paymentIntentID := ""
	if session.PaymentIntent != nil {
		paymentIntentID = session.PaymentIntent.ID
	}

	credited, err := paymentService.CompleteCheckout(
		c.Request.Context(),
		userID,
		session.ID,
		paymentIntentID,
		credits,
		session.AmountTotal,
		session.Metadata["package_id"],
	)
	if err != nil {
		return err
	}
	if !credited {
		log.Info().Str("checkout_session_id", session.ID).Msg("Duplicate checkout webhook, credits already granted")
	}
	return nil
}
