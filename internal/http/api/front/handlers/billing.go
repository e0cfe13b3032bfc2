package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/edchat-io/edchat/internal/billing"
	"github.com/edchat-io/edchat/internal/config"
	"github.com/edchat-io/edchat/internal/models"
	"github.com/edchat-io/edchat/internal/plan"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v79/webhook"
)

// maxWebhookBodyBytes caps the webhook payload read. Expanded invoice
// events run large, so this follows Stripe's documented 1MiB example.
const maxWebhookBodyBytes = int64(1 << 20)

// BillingHandler serves subscription endpoints.
type BillingHandler struct {
	service  *billing.Service
	client   *billing.Client
	cfg      config.StripeConfig
	features config.FeatureConfig
}

// NewBillingHandler constructs a BillingHandler.
func NewBillingHandler(service *billing.Service, client *billing.Client, cfg config.StripeConfig, features config.FeatureConfig) *BillingHandler {
	return &BillingHandler{service: service, client: client, cfg: cfg, features: features}
}

// CreateCheckoutSession starts a premium subscription checkout.
func (h *BillingHandler) CreateCheckoutSession(c *gin.Context) {
	user := CurrentUser(c)
	url, errSession := h.client.CheckoutSessionURL(c.Request.Context(), user)
	if errSession != nil {
		if errors.Is(errSession, billing.ErrNotConfigured) {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Billing not configured"})
			return
		}
		log.WithError(errSession).Error("checkout session failed")
		c.JSON(http.StatusBadGateway, gin.H{"detail": "Stripe error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// CreatePortalSession opens the customer portal for subscription
// management and cancellation.
func (h *BillingHandler) CreatePortalSession(c *gin.Context) {
	user := CurrentUser(c)
	url, errSession := h.client.PortalSessionURL(c.Request.Context(), user)
	if errSession != nil {
		switch {
		case errors.Is(errSession, billing.ErrNotConfigured):
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Billing not configured"})
		case errors.Is(errSession, billing.ErrNoCustomer):
			c.JSON(http.StatusBadRequest, gin.H{"detail": "No billing customer for user"})
		default:
			log.WithError(errSession).Error("portal session failed")
			c.JSON(http.StatusBadGateway, gin.H{"detail": "Stripe error"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Webhook receives Stripe events. The signature is verified against the
// raw body before anything is decoded; processing is idempotent.
func (h *BillingHandler) Webhook(c *gin.Context) {
	if h.cfg.WebhookSecret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Webhook not configured"})
		return
	}

	body, errRead := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if errRead != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(errRead, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "Payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid payload"})
		return
	}

	event, errVerify := webhook.ConstructEventWithOptions(
		body,
		c.GetHeader("Stripe-Signature"),
		h.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if errVerify != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid Stripe signature"})
		return
	}

	if errHandle := h.service.HandleEvent(c.Request.Context(), event); errHandle != nil {
		// A 500 makes Stripe retry the delivery.
		log.WithError(errHandle).WithField("event_id", event.ID).Error("webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Webhook processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// Me returns the current plan and feature flags. Admin accounts report
// premium features regardless of their stored plan.
func (h *BillingHandler) Me(c *gin.Context) {
	user := CurrentUser(c)

	if user.IsAdmin {
		c.JSON(http.StatusOK, gin.H{
			"plan":      models.PlanPremium,
			"status":    models.PlanStatusActive,
			"renews_at": nil,
			"features":  featureFlags(plan.Limits{}, true),
		})
		return
	}

	effective := plan.Effective(user)
	limits := plan.ForPlan(effective)
	c.JSON(http.StatusOK, gin.H{
		"plan":      effective,
		"status":    user.PlanStatus,
		"renews_at": user.PlanRenewsAt,
		"features":  featureFlags(limits, effective == models.PlanPremium),
	})
}

// featureFlags renders plan limits as the client feature payload. Zero
// caps serialize as null, meaning unlimited.
func featureFlags(limits plan.Limits, premium bool) gin.H {
	out := gin.H{
		"max_chats":        nil,
		"context_limit":    nil,
		"premium_features": premium,
	}
	if limits.MaxThreads > 0 {
		out["max_chats"] = limits.MaxThreads
	}
	if limits.ContextWindow > 0 {
		out["context_limit"] = limits.ContextWindow
	}
	return out
}
