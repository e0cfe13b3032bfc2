// Package billing reconciles subscription state from Stripe webhook events.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/edchat-io/edchat/internal/models"
	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v79"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service applies webhook-driven subscription changes to user records.
type Service struct {
	db *gorm.DB
}

// NewService constructs a Service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// mapSubscriptionStatus folds a Stripe subscription status into the
// stored plan status. Unknown statuses degrade to past_due rather than
// granting or fully revoking access.
func mapSubscriptionStatus(status stripe.SubscriptionStatus) string {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return models.PlanStatusActive
	case stripe.SubscriptionStatusCanceled:
		return models.PlanStatusCanceled
	default:
		return models.PlanStatusPastDue
	}
}

// HandleEvent applies one verified webhook event.
//
// Processing is idempotent: an event ID already recorded in the ledger is
// acknowledged without reapplying its state change. Events referencing no
// known user are acknowledged and dropped, since Stripe retries failures
// and an unknown customer will never start resolving.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, errClaim := claimEvent(tx, event)
		if errClaim != nil {
			return errClaim
		}
		if !claimed {
			log.WithField("event_id", event.ID).Debug("billing: duplicate webhook event ignored")
			return nil
		}
		return s.applyEvent(tx, event)
	})
}

// claimEvent records the event in the ledger, reporting false when another
// delivery already claimed it. The insert rides the caller's transaction so
// the claim and the state change commit together.
func claimEvent(tx *gorm.DB, event stripe.Event) (bool, error) {
	record := models.WebhookEvent{
		EventID: event.ID,
		Type:    string(event.Type),
		Payload: datatypes.JSON(event.Data.Raw),
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&record)
	if res.Error != nil {
		return false, fmt.Errorf("billing: record event: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Service) applyEvent(tx *gorm.DB, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if errUnmarshal := json.Unmarshal(event.Data.Raw, &sess); errUnmarshal != nil {
			return fmt.Errorf("billing: decode checkout session: %w", errUnmarshal)
		}
		return s.handleCheckoutCompleted(tx, &sess)
	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if errUnmarshal := json.Unmarshal(event.Data.Raw, &sub); errUnmarshal != nil {
			return fmt.Errorf("billing: decode subscription: %w", errUnmarshal)
		}
		return s.handleSubscriptionChanged(tx, &sub)
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if errUnmarshal := json.Unmarshal(event.Data.Raw, &sub); errUnmarshal != nil {
			return fmt.Errorf("billing: decode subscription: %w", errUnmarshal)
		}
		return s.handleSubscriptionDeleted(tx, &sub)
	case "invoice.paid":
		var inv stripe.Invoice
		if errUnmarshal := json.Unmarshal(event.Data.Raw, &inv); errUnmarshal != nil {
			return fmt.Errorf("billing: decode invoice: %w", errUnmarshal)
		}
		return s.handleInvoicePaid(tx, &inv)
	case "invoice.payment_failed":
		var inv stripe.Invoice
		if errUnmarshal := json.Unmarshal(event.Data.Raw, &inv); errUnmarshal != nil {
			return fmt.Errorf("billing: decode invoice: %w", errUnmarshal)
		}
		return s.handlePaymentFailed(tx, &inv)
	default:
		log.WithField("type", event.Type).Debug("billing: unhandled webhook event")
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(tx *gorm.DB, sess *stripe.CheckoutSession) error {
	customerID := ""
	if sess.Customer != nil {
		customerID = sess.Customer.ID
	}
	user, errFind := findUser(tx, customerID, sess.Metadata["user_id"], sess.ClientReferenceID)
	if errFind != nil {
		return errFind
	}
	if user == nil {
		log.WithField("customer", customerID).Warn("billing: checkout for unknown user")
		return nil
	}

	linkCustomer(user, customerID)

	subscriptionID := ""
	if sess.Subscription != nil {
		subscriptionID = sess.Subscription.ID
	}
	return applyPremium(tx, user, models.PlanStatusActive, subscriptionID, nil)
}

func (s *Service) handleSubscriptionChanged(tx *gorm.DB, sub *stripe.Subscription) error {
	customerID := ""
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}
	user, errFind := findUser(tx, customerID, sub.Metadata["user_id"], "")
	if errFind != nil {
		return errFind
	}
	if user == nil {
		log.WithField("customer", customerID).Warn("billing: subscription for unknown user")
		return nil
	}
	linkCustomer(user, customerID)

	var renewsAt *time.Time
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		renewsAt = &t
	}

	status := mapSubscriptionStatus(sub.Status)
	if status == models.PlanStatusCanceled {
		return applyBase(tx, user)
	}
	return applyPremium(tx, user, status, sub.ID, renewsAt)
}

func (s *Service) handleSubscriptionDeleted(tx *gorm.DB, sub *stripe.Subscription) error {
	customerID := ""
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}
	user, errFind := findUser(tx, customerID, sub.Metadata["user_id"], "")
	if errFind != nil {
		return errFind
	}
	if user == nil {
		log.WithField("customer", customerID).Warn("billing: subscription delete for unknown user")
		return nil
	}
	linkCustomer(user, customerID)
	return applyBase(tx, user)
}

func (s *Service) handleInvoicePaid(tx *gorm.DB, inv *stripe.Invoice) error {
	customerID := ""
	if inv.Customer != nil {
		customerID = inv.Customer.ID
	}
	user, errFind := findUser(tx, customerID, "", "")
	if errFind != nil {
		return errFind
	}
	if user == nil {
		log.WithField("customer", customerID).Warn("billing: paid invoice for unknown user")
		return nil
	}
	linkCustomer(user, customerID)

	// A paid invoice reaffirms the subscription regardless of prior state.
	subscriptionID := ""
	if inv.Subscription != nil {
		subscriptionID = inv.Subscription.ID
	}
	return applyPremium(tx, user, models.PlanStatusActive, subscriptionID, nil)
}

func (s *Service) handlePaymentFailed(tx *gorm.DB, inv *stripe.Invoice) error {
	customerID := ""
	if inv.Customer != nil {
		customerID = inv.Customer.ID
	}
	user, errFind := findUser(tx, customerID, "", "")
	if errFind != nil {
		return errFind
	}
	if user == nil {
		log.WithField("customer", customerID).Warn("billing: failed payment for unknown user")
		return nil
	}

	// Access survives the grace period; only the status degrades.
	subscriptionID := ""
	if user.StripeSubscriptionID != nil {
		subscriptionID = *user.StripeSubscriptionID
	}
	return applyPremium(tx, user, models.PlanStatusPastDue, subscriptionID, user.PlanRenewsAt)
}

// linkCustomer persists the customer reference on users resolved through
// metadata, so later customer-only events (invoices) can find them.
func linkCustomer(user *models.User, customerID string) {
	if customerID == "" {
		return
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID != customerID {
		user.StripeCustomerID = &customerID
	}
}

// findUser resolves the affected user: by stored customer reference first,
// then by the user_id metadata set at checkout, then by the checkout
// client reference. A nil user with nil error means no match.
func findUser(tx *gorm.DB, customerID, metadataUserID, clientReference string) (*models.User, error) {
	if customerID != "" {
		var user models.User
		errFind := tx.Where("stripe_customer_id = ?", customerID).First(&user).Error
		if errFind == nil {
			return &user, nil
		}
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("billing: lookup by customer: %w", errFind)
		}
	}
	for _, raw := range []string{metadataUserID, clientReference} {
		if raw == "" {
			continue
		}
		var id uint64
		if _, errScan := fmt.Sscanf(raw, "%d", &id); errScan != nil || id == 0 {
			continue
		}
		var user models.User
		errFind := tx.First(&user, id).Error
		if errFind == nil {
			return &user, nil
		}
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("billing: lookup by id: %w", errFind)
		}
	}
	return nil, nil
}

// applyPremium grants paid access with the given status and references.
func applyPremium(tx *gorm.DB, user *models.User, status, subscriptionID string, renewsAt *time.Time) error {
	user.Plan = models.PlanPremium
	user.PlanStatus = &status
	user.SubscriptionTier = models.TierPremium
	if subscriptionID != "" {
		user.StripeSubscriptionID = &subscriptionID
	}
	if renewsAt != nil {
		user.PlanRenewsAt = renewsAt
	}
	if errSave := tx.Save(user).Error; errSave != nil {
		return fmt.Errorf("billing: save user: %w", errSave)
	}
	return nil
}

// applyBase revokes paid access and clears subscription references.
func applyBase(tx *gorm.DB, user *models.User) error {
	status := models.PlanStatusCanceled
	user.Plan = models.PlanBase
	user.PlanStatus = &status
	user.SubscriptionTier = models.TierBase
	user.StripeSubscriptionID = nil
	user.PlanRenewsAt = nil
	if errSave := tx.Save(user).Error; errSave != nil {
		return fmt.Errorf("billing: save user: %w", errSave)
	}
	return nil
}
