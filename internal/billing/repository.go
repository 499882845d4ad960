package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwbutler6/greekdash/internal/models"
)

// Repository handles subscription persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a billing repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const subColumns = `id, chapter_id, plan, status, COALESCE(stripe_subscription_id,''), COALESCE(stripe_price_id,''), current_period_end, created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }) (*models.Subscription, error) {
	var s models.Subscription
	err := row.Scan(&s.ID, &s.ChapterID, &s.Plan, &s.Status, &s.StripeSubscriptionID,
		&s.StripePriceID, &s.CurrentPeriodEnd, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByChapter returns the chapter's subscription row. One row per chapter.
func (r *Repository) GetByChapter(ctx context.Context, chapterID uuid.UUID) (*models.Subscription, error) {
	return scanSubscription(r.pool.QueryRow(ctx,
		`SELECT `+subColumns+` FROM subscriptions WHERE chapter_id = $1`, chapterID))
}

// UpsertFromStripe synchronizes the subscription row with processor state.
// The chapter_id unique constraint makes repeated webhook deliveries converge
// on the same row.
func (r *Repository) UpsertFromStripe(ctx context.Context, chapterID uuid.UUID, plan models.Plan, status, stripeSubID, priceID string, periodEnd *time.Time) (*models.Subscription, error) {
	const q = `INSERT INTO subscriptions (chapter_id, plan, status, stripe_subscription_id, stripe_price_id, current_period_end)
		VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), $6)
		ON CONFLICT (chapter_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			stripe_price_id = EXCLUDED.stripe_price_id,
			current_period_end = EXCLUDED.current_period_end,
			updated_at = NOW()
		RETURNING ` + subColumns
	return scanSubscription(r.pool.QueryRow(ctx, q, chapterID, plan, status, stripeSubID, priceID, periodEnd))
}
