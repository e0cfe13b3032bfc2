package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/edchat-io/edchat/internal/config"
	"github.com/edchat-io/edchat/internal/models"
	"github.com/stripe/stripe-go/v79"
	portal "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"gorm.io/gorm"
)

// ErrNotConfigured is returned when billing endpoints are used without
// Stripe credentials.
var ErrNotConfigured = errors.New("billing: stripe not configured")

// ErrNoCustomer is returned when a portal session is requested for a user
// with no billing customer on record.
var ErrNoCustomer = errors.New("billing: user has no stripe customer")

// Client wraps the Stripe API calls the checkout and portal flows need.
type Client struct {
	db  *gorm.DB
	cfg config.StripeConfig
}

// NewClient constructs a Client and installs the API key.
func NewClient(db *gorm.DB, cfg config.StripeConfig) *Client {
	if cfg.SecretKey != "" {
		stripe.Key = cfg.SecretKey
	}
	return &Client{db: db, cfg: cfg}
}

// Configured reports whether checkout and portal flows can be served.
func (cl *Client) Configured() bool {
	return cl.cfg.SecretKey != "" && cl.cfg.PriceIDPremium != ""
}

// EnsureCustomer finds or creates the Stripe customer for a user and
// persists the reference on the user record.
func (cl *Client) EnsureCustomer(ctx context.Context, user *models.User) (string, error) {
	if cl.cfg.SecretKey == "" {
		return "", ErrNotConfigured
	}
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Metadata: map[string]string{
			"user_id": fmt.Sprintf("%d", user.ID),
		},
	}
	params.Context = ctx
	cust, errNew := customer.New(params)
	if errNew != nil {
		return "", fmt.Errorf("billing: create customer: %w", errNew)
	}

	if errUpdate := cl.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("stripe_customer_id", cust.ID).Error; errUpdate != nil {
		return "", fmt.Errorf("billing: store customer id: %w", errUpdate)
	}
	user.StripeCustomerID = &cust.ID
	return cust.ID, nil
}

// CheckoutSessionURL starts a subscription checkout for the user and
// returns the hosted page URL.
func (cl *Client) CheckoutSessionURL(ctx context.Context, user *models.User) (string, error) {
	if !cl.Configured() {
		return "", ErrNotConfigured
	}
	customerID, errEnsure := cl.EnsureCustomer(ctx, user)
	if errEnsure != nil {
		return "", errEnsure
	}

	base := strings.TrimRight(cl.cfg.AppBaseURL, "/")
	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(cl.cfg.PriceIDPremium),
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(fmt.Sprintf("%d", user.ID)),
		SuccessURL:        stripe.String(base + "/billing/success"),
		CancelURL:         stripe.String(base + "/billing/cancel"),
		Metadata: map[string]string{
			"user_id": fmt.Sprintf("%d", user.ID),
		},
	}
	params.Context = ctx
	sess, errNew := session.New(params)
	if errNew != nil {
		return "", fmt.Errorf("billing: create checkout session: %w", errNew)
	}
	return sess.URL, nil
}

// PortalSessionURL opens the customer portal for subscription management.
func (cl *Client) PortalSessionURL(ctx context.Context, user *models.User) (string, error) {
	if cl.cfg.SecretKey == "" {
		return "", ErrNotConfigured
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return "", ErrNoCustomer
	}

	base := strings.TrimRight(cl.cfg.AppBaseURL, "/")
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(*user.StripeCustomerID),
		ReturnURL: stripe.String(base + "/settings/billing"),
	}
	params.Context = ctx
	sess, errNew := portal.New(params)
	if errNew != nil {
		return "", fmt.Errorf("billing: create portal session: %w", errNew)
	}
	return sess.URL, nil
}
