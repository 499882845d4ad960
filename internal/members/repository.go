package members

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwbutler6/greekdash/internal/models"
)

// Repository handles membership persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a members repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const membershipColumns = `id, user_id, chapter_id, role, created_at, updated_at`

func scanMembership(row interface{ Scan(...any) error }) (*models.Membership, error) {
	var m models.Membership
	err := row.Scan(&m.ID, &m.UserID, &m.ChapterID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByUserAndChapter returns the unique membership for a user/chapter pair.
// Always scoped to the one chapter; there is no global membership lookup in
// tenant-scoped request handling.
func (r *Repository) GetByUserAndChapter(ctx context.Context, userID, chapterID uuid.UUID) (*models.Membership, error) {
	return scanMembership(r.pool.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 AND chapter_id = $2`,
		userID, chapterID))
}

// GetByID returns a membership by ID, scoped to the chapter.
func (r *Repository) GetByID(ctx context.Context, chapterID, membershipID uuid.UUID) (*models.Membership, error) {
	return scanMembership(r.pool.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE id = $1 AND chapter_id = $2`,
		membershipID, chapterID))
}

// Create inserts a membership at the given role. The (user_id, chapter_id)
// unique constraint arbitrates concurrent joins; callers translate the
// violation into a handled conflict.
func (r *Repository) Create(ctx context.Context, userID, chapterID uuid.UUID, role models.Role) (*models.Membership, error) {
	return scanMembership(r.pool.QueryRow(ctx,
		`INSERT INTO memberships (user_id, chapter_id, role) VALUES ($1, $2, $3)
		 RETURNING `+membershipColumns,
		userID, chapterID, role))
}

// CreateTx is Create inside an existing transaction.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, userID, chapterID uuid.UUID, role models.Role) (*models.Membership, error) {
	return scanMembership(tx.QueryRow(ctx,
		`INSERT INTO memberships (user_id, chapter_id, role) VALUES ($1, $2, $3)
		 RETURNING `+membershipColumns,
		userID, chapterID, role))
}

// UpdateRole sets a membership's role, scoped to the chapter.
func (r *Repository) UpdateRole(ctx context.Context, chapterID, membershipID uuid.UUID, role models.Role) (*models.Membership, error) {
	return scanMembership(r.pool.QueryRow(ctx,
		`UPDATE memberships SET role = $3, updated_at = NOW()
		 WHERE id = $1 AND chapter_id = $2
		 RETURNING `+membershipColumns,
		membershipID, chapterID, role))
}

// Delete removes a membership row, scoped to the chapter. Returns
// pgx.ErrNoRows when the row is already gone, so a second deny is a 404.
func (r *Repository) Delete(ctx context.Context, chapterID, membershipID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM memberships WHERE id = $1 AND chapter_id = $2`, membershipID, chapterID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// List returns all memberships in a chapter joined with user details,
// pending first so approval queues surface at the top.
func (r *Repository) List(ctx context.Context, chapterID uuid.UUID) ([]models.MemberDetail, error) {
	const q = `SELECT m.id, m.user_id, u.email, u.full_name, COALESCE(u.phone,''), m.role, m.created_at
		FROM memberships m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.chapter_id = $1
		ORDER BY (m.role = 'pending_member') DESC, m.created_at ASC`
	rows, err := r.pool.Query(ctx, q, chapterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.MemberDetail
	for rows.Next() {
		var m models.MemberDetail
		if err := rows.Scan(&m.ID, &m.UserID, &m.Email, &m.FullName, &m.Phone, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
