package models

import "time"

// Plan identifiers stored on the user record.
const (
	// PlanBase is the free tier.
	PlanBase = "base"
	// PlanPremium is the paid tier.
	PlanPremium = "premium"
)

// Plan status values stored on the user record.
const (
	// PlanStatusActive marks a subscription in good standing.
	PlanStatusActive = "active"
	// PlanStatusPastDue marks a subscription in the payment grace period.
	PlanStatusPastDue = "past_due"
	// PlanStatusCanceled marks a terminated subscription.
	PlanStatusCanceled = "canceled"
)

// Legacy subscription tier values kept for partially migrated records.
const (
	// TierBase is the legacy free tier flag.
	TierBase = "BASE"
	// TierPremium is the legacy paid tier flag.
	TierPremium = "PREMIUM"
)

// User represents an end-user account stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email    string `gorm:"type:text;not null;uniqueIndex"` // Email address.
	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	Plan         string     `gorm:"type:varchar(20);not null;default:'base'"` // Plan tier (base|premium).
	PlanStatus   *string    `gorm:"type:varchar(20)"`                         // Subscription status (active|past_due|canceled).
	PlanRenewsAt *time.Time // Current period end.

	SubscriptionTier string `gorm:"type:varchar(20);not null;default:'BASE'"` // Legacy tier flag (BASE|PREMIUM).

	StripeCustomerID     *string `gorm:"type:text;index"` // External billing customer reference.
	StripeSubscriptionID *string `gorm:"type:text"`       // External billing subscription reference.

	IsAdmin bool `gorm:"not null;default:false"` // Back-office access flag.

	Threads []Thread `gorm:"foreignKey:UserID"` // Owned chat threads.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
