package chapters

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwbutler6/greekdash/internal/models"
	"github.com/cwbutler6/greekdash/pkg/database"
)

// Repository handles chapter persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chapters repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const chapterColumns = `id, slug, name, join_code, COALESCE(stripe_customer_id,''), COALESCE(primary_color,''), COALESCE(logo_url,''), created_at, updated_at`

func scanChapter(row interface{ Scan(...any) error }) (*models.Chapter, error) {
	var ch models.Chapter
	err := row.Scan(&ch.ID, &ch.Slug, &ch.Name, &ch.JoinCode, &ch.StripeCustomerID,
		&ch.PrimaryColor, &ch.LogoURL, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// GetBySlug returns a chapter by its slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Chapter, error) {
	return scanChapter(r.pool.QueryRow(ctx, `SELECT `+chapterColumns+` FROM chapters WHERE slug = $1`, slug))
}

// GetByID returns a chapter by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Chapter, error) {
	return scanChapter(r.pool.QueryRow(ctx, `SELECT `+chapterColumns+` FROM chapters WHERE id = $1`, id))
}

// CreateWithOwner atomically creates the chapter, its creator's OWNER
// membership, and a free-plan subscription. Partial application is impossible:
// either all three rows exist or none do.
func (r *Repository) CreateWithOwner(ctx context.Context, ch *models.Chapter, ownerID uuid.UUID) (*models.Membership, error) {
	joinCode, err := NewJoinCode()
	if err != nil {
		return nil, fmt.Errorf("generate join code: %w", err)
	}

	var membership models.Membership
	err = database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO chapters (slug, name, join_code, primary_color, logo_url)
			 VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''))
			 RETURNING id, join_code, created_at, updated_at`,
			ch.Slug, ch.Name, joinCode, ch.PrimaryColor, ch.LogoURL,
		).Scan(&ch.ID, &ch.JoinCode, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx,
			`INSERT INTO memberships (user_id, chapter_id, role)
			 VALUES ($1, $2, $3)
			 RETURNING id, user_id, chapter_id, role, created_at, updated_at`,
			ownerID, ch.ID, models.RoleOwner,
		).Scan(&membership.ID, &membership.UserID, &membership.ChapterID, &membership.Role,
			&membership.CreatedAt, &membership.UpdatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO subscriptions (chapter_id, plan, status) VALUES ($1, $2, $3)`,
			ch.ID, models.PlanFree, models.SubscriptionStatusActive)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// UpdateSettings applies partial settings updates. Slug is immutable identity
// and cannot be changed here.
func (r *Repository) UpdateSettings(ctx context.Context, id uuid.UUID, name, primaryColor, logoURL *string) (*models.Chapter, error) {
	const q = `UPDATE chapters SET
		name = COALESCE($2, name),
		primary_color = COALESCE($3, primary_color),
		logo_url = COALESCE($4, logo_url),
		updated_at = NOW()
		WHERE id = $1
		RETURNING ` + chapterColumns
	return scanChapter(r.pool.QueryRow(ctx, q, id, name, primaryColor, logoURL))
}

// RotateJoinCode replaces the chapter's join code, invalidating the old one.
func (r *Repository) RotateJoinCode(ctx context.Context, id uuid.UUID) (string, error) {
	code, err := NewJoinCode()
	if err != nil {
		return "", fmt.Errorf("generate join code: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE chapters SET join_code = $2, updated_at = NOW() WHERE id = $1`, id, code)
	if err != nil {
		return "", err
	}
	return code, nil
}

// SetStripeCustomerID stores the Stripe customer id created for the chapter.
func (r *Repository) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE chapters SET stripe_customer_id = $2, updated_at = NOW() WHERE id = $1`, id, customerID)
	return err
}

// GetPublic returns the unauthenticated landing view for a chapter slug.
func (r *Repository) GetPublic(ctx context.Context, slug string) (*models.ChapterPublic, error) {
	const q = `SELECT c.slug, c.name, COALESCE(c.primary_color,''), COALESCE(c.logo_url,''),
		(SELECT COUNT(*) FROM events e WHERE e.chapter_id = c.id AND e.starts_at > NOW())
		FROM chapters c WHERE c.slug = $1`
	var p models.ChapterPublic
	err := r.pool.QueryRow(ctx, q, slug).Scan(&p.Slug, &p.Name, &p.PrimaryColor, &p.LogoURL, &p.UpcomingCount)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// joinCodeAlphabet avoids ambiguous characters (0/O, 1/I/L).
const joinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// NewJoinCode returns an 8-character join code.
func NewJoinCode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = joinCodeAlphabet[int(b[i])%len(joinCodeAlphabet)]
	}
	return string(b), nil
}
