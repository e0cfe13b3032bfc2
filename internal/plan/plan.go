// Package plan maps subscription tiers to enforcement limits.
package plan

import (
	"strings"

	"github.com/edchat-io/edchat/internal/models"
)

// Limits describes the numeric caps enforced for a plan tier.
// A zero value means unlimited.
type Limits struct {
	MaxThreads           int // Maximum threads per user.
	MaxMessagesPerThread int // Maximum user+assistant messages per thread.
	ContextWindow        int // Most recent messages fed to inference.
}

// Base plan caps.
const (
	BaseMaxThreads    = 5
	BaseMaxMessages   = 30
	BaseContextWindow = 12
)

// ForPlan returns the limits enforced for the given plan tier.
// Unknown tiers resolve to base limits.
func ForPlan(plan string) Limits {
	if strings.ToLower(strings.TrimSpace(plan)) == models.PlanPremium {
		return Limits{}
	}
	return Limits{
		MaxThreads:           BaseMaxThreads,
		MaxMessagesPerThread: BaseMaxMessages,
		ContextWindow:        BaseContextWindow,
	}
}

// activeLike reports whether a plan status still grants paid access.
func activeLike(status string) bool {
	switch status {
	case models.PlanStatusActive, models.PlanStatusPastDue, "trialing":
		return true
	default:
		return false
	}
}

// Effective resolves the plan tier actually enforced for a user.
//
// Premium requires both the plan field and an active-like status. A legacy
// tier flag plus a subscription reference also grants premium until those
// records are backfilled. Every other combination resolves to base so stale
// or partially migrated rows never leak paid access.
func Effective(u *models.User) string {
	if u == nil {
		return models.PlanBase
	}
	if strings.ToLower(strings.TrimSpace(u.Plan)) == models.PlanPremium {
		if u.PlanStatus != nil && activeLike(*u.PlanStatus) {
			return models.PlanPremium
		}
	}
	if u.SubscriptionTier == models.TierPremium && u.StripeSubscriptionID != nil && *u.StripeSubscriptionID != "" {
		return models.PlanPremium
	}
	return models.PlanBase
}

// EffectiveLimits returns the limits for the user's effective plan.
func EffectiveLimits(u *models.User) Limits {
	return ForPlan(Effective(u))
}
