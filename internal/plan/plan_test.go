package plan

import (
	"testing"

	"github.com/edchat-io/edchat/internal/models"
)

func strptr(s string) *string { return &s }

func TestForPlan_Base(t *testing.T) {
	limits := ForPlan("base")
	if limits.MaxThreads != 5 {
		t.Fatalf("expected max threads 5, got %d", limits.MaxThreads)
	}
	if limits.MaxMessagesPerThread != 30 {
		t.Fatalf("expected max messages 30, got %d", limits.MaxMessagesPerThread)
	}
	if limits.ContextWindow != 12 {
		t.Fatalf("expected context window 12, got %d", limits.ContextWindow)
	}
}

func TestForPlan_Premium(t *testing.T) {
	limits := ForPlan("premium")
	if limits.MaxThreads != 0 || limits.MaxMessagesPerThread != 0 || limits.ContextWindow != 0 {
		t.Fatalf("expected unlimited premium limits, got %+v", limits)
	}
}

func TestForPlan_UnknownFallsBackToBase(t *testing.T) {
	if ForPlan("enterprise") != ForPlan("base") {
		t.Fatalf("unknown plan should resolve to base limits")
	}
	if ForPlan("") != ForPlan("base") {
		t.Fatalf("empty plan should resolve to base limits")
	}
}

func TestEffective(t *testing.T) {
	cases := []struct {
		name string
		user models.User
		want string
	}{
		{
			name: "premium active",
			user: models.User{Plan: "premium", PlanStatus: strptr("active")},
			want: models.PlanPremium,
		},
		{
			name: "premium past_due keeps access",
			user: models.User{Plan: "premium", PlanStatus: strptr("past_due")},
			want: models.PlanPremium,
		},
		{
			name: "premium trialing keeps access",
			user: models.User{Plan: "premium", PlanStatus: strptr("trialing")},
			want: models.PlanPremium,
		},
		{
			name: "premium canceled drops to base",
			user: models.User{Plan: "premium", PlanStatus: strptr("canceled")},
			want: models.PlanBase,
		},
		{
			name: "premium without status drops to base",
			user: models.User{Plan: "premium"},
			want: models.PlanBase,
		},
		{
			name: "legacy tier with subscription grants premium",
			user: models.User{Plan: "base", SubscriptionTier: "PREMIUM", StripeSubscriptionID: strptr("sub_123")},
			want: models.PlanPremium,
		},
		{
			name: "legacy tier without subscription stays base",
			user: models.User{Plan: "base", SubscriptionTier: "PREMIUM"},
			want: models.PlanBase,
		},
		{
			name: "plain base",
			user: models.User{Plan: "base", SubscriptionTier: "BASE"},
			want: models.PlanBase,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Effective(&tc.user); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestEffective_NilUser(t *testing.T) {
	if Effective(nil) != models.PlanBase {
		t.Fatalf("nil user should resolve to base")
	}
}
