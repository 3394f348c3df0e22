package controllers

import (
	"context"
	"io"
	"net/http"

	"envie2sortir-backend/logger"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
)

const maxWebhookBytes = 64 << 10

// WebhookHandler processes a signed billing event.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (string, error)
}

type BillingController struct {
	Billing WebhookHandler
}

// StripeWebhook verifies and applies a Stripe event
func (bc *BillingController) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Unreadable payload")
		return
	}

	eventType, err := bc.Billing.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}

	logger.L().Info("billing webhook processed", map[string]interface{}{"type": eventType})
	c.JSON(http.StatusOK, gin.H{"received": true, "type": eventType})
}
