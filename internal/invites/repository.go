package invites

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwbutler6/greekdash/internal/models"
)

// Repository handles invite persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an invites repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const inviteColumns = `id, chapter_id, email, role, token, invited_by, expires_at, accepted_at, created_at`

func scanInvite(row interface{ Scan(...any) error }) (*models.Invite, error) {
	var i models.Invite
	err := row.Scan(&i.ID, &i.ChapterID, &i.Email, &i.Role, &i.Token, &i.InvitedBy,
		&i.ExpiresAt, &i.AcceptedAt, &i.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// Create inserts an invite and fills in generated fields.
func (r *Repository) Create(ctx context.Context, inv *models.Invite) error {
	const q = `INSERT INTO invites (chapter_id, email, role, token, invited_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, inv.ChapterID, inv.Email, inv.Role, inv.Token, inv.InvitedBy, inv.ExpiresAt).
		Scan(&inv.ID, &inv.CreatedAt)
}

// GetByID returns an invite by ID, scoped to the chapter.
func (r *Repository) GetByID(ctx context.Context, chapterID, inviteID uuid.UUID) (*models.Invite, error) {
	return scanInvite(r.pool.QueryRow(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE id = $1 AND chapter_id = $2`, inviteID, chapterID))
}

// GetByToken returns an invite by its token.
func (r *Repository) GetByToken(ctx context.Context, token string) (*models.Invite, error) {
	return scanInvite(r.pool.QueryRow(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE token = $1`, token))
}

// List returns a chapter's invites, newest first.
func (r *Repository) List(ctx context.Context, chapterID uuid.UUID) ([]*models.Invite, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE chapter_id = $1 ORDER BY created_at DESC`, chapterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// ExtendExpiry pushes an invite's expiry forward, used on resend.
func (r *Repository) ExtendExpiry(ctx context.Context, chapterID, inviteID uuid.UUID, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE invites SET expires_at = $3 WHERE id = $1 AND chapter_id = $2 AND accepted_at IS NULL`,
		inviteID, chapterID, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete revokes an invite, scoped to the chapter.
func (r *Repository) Delete(ctx context.Context, chapterID, inviteID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM invites WHERE id = $1 AND chapter_id = $2`, inviteID, chapterID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkAcceptedTx consumes the invite inside an existing transaction.
// Returns pgx.ErrNoRows if the invite was already accepted, so two concurrent
// accepts cannot both succeed.
func (r *Repository) MarkAcceptedTx(ctx context.Context, tx pgx.Tx, inviteID uuid.UUID) error {
	tag, err := tx.Exec(ctx,
		`UPDATE invites SET accepted_at = NOW() WHERE id = $1 AND accepted_at IS NULL`, inviteID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
