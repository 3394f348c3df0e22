package services

import (
	"context"
	"encoding/json"
	"errors"

	"envie2sortir-backend/apperr"
	"envie2sortir-backend/logger"
	"envie2sortir-backend/models"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/gorm"
)

// BillingService applies Stripe subscription events to professional plans.
type BillingService struct {
	db            *gorm.DB
	webhookSecret string
}

func NewBillingService(db *gorm.DB, webhookSecret string) *BillingService {
	return &BillingService{db: db, webhookSecret: webhookSecret}
}

// HandleWebhook verifies the signature and processes the event. Unknown event
// types are acknowledged and ignored.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) (string, error) {
	if s.webhookSecret == "" {
		return "", apperr.NewInternal("Billing webhook not configured", errors.New("missing webhook secret"))
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return "", apperr.NewValidation("Invalid webhook signature")
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return "", apperr.NewValidation("Invalid checkout session payload")
		}
		return string(event.Type), s.upgrade(ctx, session)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return "", apperr.NewValidation("Invalid subscription payload")
		}
		return string(event.Type), s.downgrade(ctx, sub)
	}

	logger.L().Debug("ignoring stripe event", map[string]interface{}{"type": string(event.Type)})
	return string(event.Type), nil
}

func (s *BillingService) upgrade(ctx context.Context, session stripe.CheckoutSession) error {
	proID, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		return apperr.NewValidation("Checkout session has no valid client reference")
	}

	updates := map[string]interface{}{"subscription_plan": models.PlanPremium}
	if session.Customer != nil && session.Customer.ID != "" {
		updates["stripe_customer_id"] = session.Customer.ID
	}

	res := s.db.WithContext(ctx).Model(&models.Professional{}).Where("id = ?", proID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NewNotFound("Professional")
	}
	logger.L().Info("professional upgraded to premium", map[string]interface{}{"professionalId": proID.String()})
	return nil
}

func (s *BillingService) downgrade(ctx context.Context, sub stripe.Subscription) error {
	if sub.Customer == nil || sub.Customer.ID == "" {
		return apperr.NewValidation("Subscription has no customer")
	}

	res := s.db.WithContext(ctx).Model(&models.Professional{}).
		Where("stripe_customer_id = ?", sub.Customer.ID).
		Update("subscription_plan", models.PlanFree)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		logger.L().Warn("no professional for stripe customer", map[string]interface{}{"customer": sub.Customer.ID})
		return nil
	}
	logger.L().Info("professional downgraded to free", map[string]interface{}{"customer": sub.Customer.ID})
	return nil
}
