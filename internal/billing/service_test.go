package billing

import (
	"testing"

	"github.com/stripe/stripe-go/v76"
	"github.com/stretchr/testify/require"

	"github.com/cwbutler6/greekdash/config"
	"github.com/cwbutler6/greekdash/internal/models"
)

func testService() *Service {
	return NewService(config.StripeConfig{
		SecretKey:    "sk_test_x",
		BasicPriceID: "price_basic",
		ProPriceID:   "price_pro",
	}, "https://app.example.com", nil, nil)
}

func TestPlanPrice(t *testing.T) {
	svc := testService()

	price, err := svc.PlanPrice(models.PlanBasic)
	require.NoError(t, err)
	require.Equal(t, "price_basic", price)

	price, err = svc.PlanPrice(models.PlanPro)
	require.NoError(t, err)
	require.Equal(t, "price_pro", price)

	_, err = svc.PlanPrice(models.PlanFree)
	require.Error(t, err, "free plan has no price")
}

func TestPriceToPlan(t *testing.T) {
	svc := testService()
	require.Equal(t, models.PlanBasic, svc.PriceToPlan("price_basic"))
	require.Equal(t, models.PlanPro, svc.PriceToPlan("price_pro"))
	require.Equal(t, models.PlanFree, svc.PriceToPlan("price_unknown"))
	require.Equal(t, models.PlanFree, svc.PriceToPlan(""))
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		in   stripe.SubscriptionStatus
		want string
	}{
		{stripe.SubscriptionStatusActive, models.SubscriptionStatusActive},
		{stripe.SubscriptionStatusTrialing, models.SubscriptionStatusActive},
		{stripe.SubscriptionStatusPastDue, models.SubscriptionStatusPastDue},
		{stripe.SubscriptionStatusUnpaid, models.SubscriptionStatusPastDue},
		{stripe.SubscriptionStatusCanceled, models.SubscriptionStatusCanceled},
		{stripe.SubscriptionStatusIncompleteExpired, models.SubscriptionStatusCanceled},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, MapStatus(tt.in), "status %s", tt.in)
	}
}
