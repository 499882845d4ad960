package billing

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	portalsession "github.com/stripe/stripe-go/v76/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/customer"
	"go.uber.org/zap"

	"github.com/cwbutler6/greekdash/config"
	"github.com/cwbutler6/greekdash/internal/chapters"
	"github.com/cwbutler6/greekdash/internal/models"
)

// Service wraps the Stripe API for chapter subscriptions. Each chapter maps
// to one Stripe customer, created lazily on first checkout.
type Service struct {
	cfg      config.StripeConfig
	baseURL  string
	chapters *chapters.Repository
	logger   *zap.Logger
}

// NewService creates a billing service and sets the Stripe API key.
func NewService(cfg config.StripeConfig, baseURL string, chapterRepo *chapters.Repository, logger *zap.Logger) *Service {
	stripe.Key = cfg.SecretKey
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cfg: cfg, baseURL: baseURL, chapters: chapterRepo, logger: logger}
}

// PlanPrice maps a paid plan to its configured Stripe price.
func (s *Service) PlanPrice(plan models.Plan) (string, error) {
	switch plan {
	case models.PlanBasic:
		return s.cfg.BasicPriceID, nil
	case models.PlanPro:
		return s.cfg.ProPriceID, nil
	}
	return "", fmt.Errorf("no price for plan %q", plan)
}

// PriceToPlan maps a Stripe price back to the plan it sells.
func (s *Service) PriceToPlan(priceID string) models.Plan {
	switch priceID {
	case s.cfg.BasicPriceID:
		return models.PlanBasic
	case s.cfg.ProPriceID:
		return models.PlanPro
	}
	return models.PlanFree
}

// EnsureCustomer returns the chapter's Stripe customer ID, creating the
// customer on first use and persisting the ID.
func (s *Service) EnsureCustomer(ctx context.Context, chapter *models.Chapter) (string, error) {
	if chapter.StripeCustomerID != "" {
		return chapter.StripeCustomerID, nil
	}

	cust, err := customer.New(&stripe.CustomerParams{
		Name: stripe.String(chapter.Name),
		Metadata: map[string]string{
			"chapter_id":   chapter.ID.String(),
			"chapter_slug": chapter.Slug,
		},
	})
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}

	if err := s.chapters.SetStripeCustomerID(ctx, chapter.ID, cust.ID); err != nil {
		return "", fmt.Errorf("persist stripe customer id: %w", err)
	}
	chapter.StripeCustomerID = cust.ID
	s.logger.Info("stripe customer created",
		zap.String("chapter_id", chapter.ID.String()), zap.String("customer_id", cust.ID))
	return cust.ID, nil
}

// CreateCheckout starts a subscription checkout for the chapter. The chapter
// identity rides along as metadata on both the session and the subscription so
// webhooks can route events back without a lookup table.
func (s *Service) CreateCheckout(ctx context.Context, chapter *models.Chapter, plan models.Plan) (string, error) {
	priceID, err := s.PlanPrice(plan)
	if err != nil {
		return "", err
	}
	custID, err := s.EnsureCustomer(ctx, chapter)
	if err != nil {
		return "", err
	}

	meta := map[string]string{
		"chapter_id":   chapter.ID.String(),
		"chapter_slug": chapter.Slug,
	}
	sess, err := checkoutsession.New(&stripe.CheckoutSessionParams{
		Customer: stripe.String(custID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(s.baseURL + "/" + chapter.Slug + "/admin/billing?checkout=success"),
		CancelURL:  stripe.String(s.baseURL + "/" + chapter.Slug + "/admin/upgrade?checkout=canceled"),
		Metadata:   meta,
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: meta,
		},
	})
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CreatePortal opens a Stripe billing portal session for managing the
// subscription (payment method, cancellation, invoices).
func (s *Service) CreatePortal(ctx context.Context, chapter *models.Chapter) (string, error) {
	custID, err := s.EnsureCustomer(ctx, chapter)
	if err != nil {
		return "", err
	}

	sess, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(custID),
		ReturnURL: stripe.String(s.baseURL + "/" + chapter.Slug + "/admin/billing"),
	})
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return sess.URL, nil
}

// MapStatus normalizes a Stripe subscription status to the stored values.
func MapStatus(status stripe.SubscriptionStatus) string {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return models.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return models.SubscriptionStatusPastDue
	default:
		return models.SubscriptionStatusCanceled
	}
}
