package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwbutler6/greekdash/internal/models"
)

// Repository handles user and password-reset-token persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, COALESCE(password_hash,''), full_name, COALESCE(phone,''), COALESCE(image_url,''), created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Phone, &u.ImageURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// Create inserts a new user. passwordHash may be empty for invite-created users.
func (r *Repository) Create(ctx context.Context, email, passwordHash, fullName, phone string) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, full_name, phone)
		VALUES ($1, NULLIF($2,''), $3, NULLIF($4,''))
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, email, passwordHash, fullName, phone))
}

// UpdatePassword sets a new password hash for the user.
func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, userID, passwordHash)
	return err
}

// ListMemberships returns the compact membership list for a user, used for
// JWT claims and GET /api/me.
func (r *Repository) ListMemberships(ctx context.Context, userID uuid.UUID) ([]models.MembershipSummary, error) {
	const q = `SELECT m.id, m.chapter_id, c.slug, m.role
		FROM memberships m
		INNER JOIN chapters c ON c.id = m.chapter_id
		WHERE m.user_id = $1
		ORDER BY m.created_at ASC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.MembershipSummary
	for rows.Next() {
		var m models.MembershipSummary
		if err := rows.Scan(&m.MembershipID, &m.ChapterID, &m.ChapterSlug, &m.Role); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// CreateResetToken stores a password reset token.
func (r *Repository) CreateResetToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO password_reset_tokens (user_id, token, expires_at) VALUES ($1, $2, $3)`,
		userID, token, expiresAt)
	return err
}

// GetResetToken returns a reset token row by its token value.
func (r *Repository) GetResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	const q = `SELECT id, user_id, token, expires_at, used_at, created_at
		FROM password_reset_tokens WHERE token = $1`
	var t models.PasswordResetToken
	err := r.pool.QueryRow(ctx, q, token).Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkResetTokenUsed consumes a reset token.
func (r *Repository) MarkResetTokenUsed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE password_reset_tokens SET used_at = NOW() WHERE id = $1`, id)
	return err
}
