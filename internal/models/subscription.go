package models

import (
	"time"

	"github.com/google/uuid"
)

// Plan is the chapter's subscription tier.
type Plan string

const (
	PlanFree  Plan = "free"
	PlanBasic Plan = "basic"
	PlanPro   Plan = "pro"
)

var planRank = map[Plan]int{
	PlanFree:  0,
	PlanBasic: 1,
	PlanPro:   2,
}

// AtLeast reports whether p meets or exceeds the threshold plan.
func (p Plan) AtLeast(threshold Plan) bool {
	rank, ok := planRank[p]
	if !ok {
		return false
	}
	want, ok := planRank[threshold]
	if !ok {
		return false
	}
	return rank >= want
}

// Feature is a plan-gated finance capability.
type Feature string

const (
	FeatureBudgets           Feature = "budgets"
	FeatureExpenses          Feature = "expenses"
	FeatureDues              Feature = "dues"
	FeatureAdvancedReporting Feature = "advanced_reporting"
)

// featurePlans maps each feature to the minimum plan that enables it.
var featurePlans = map[Feature]Plan{
	FeatureBudgets:           PlanBasic,
	FeatureExpenses:          PlanBasic,
	FeatureDues:              PlanBasic,
	FeatureAdvancedReporting: PlanPro,
}

// HasFeature reports whether the plan enables the feature.
func (p Plan) HasFeature(f Feature) bool {
	min, ok := featurePlans[f]
	if !ok {
		return false
	}
	return p.AtLeast(min)
}

// Subscription status values mirror the payment processor.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

// Subscription is the per-chapter plan state, synchronized with Stripe.
type Subscription struct {
	ID                   uuid.UUID `json:"id"`
	ChapterID            uuid.UUID `json:"chapter_id"`
	Plan                 Plan      `json:"plan"`
	Status               string    `json:"status"`
	StripeSubscriptionID string    `json:"-"`
	StripePriceID        string    `json:"-"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
