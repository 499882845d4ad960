package broadcast

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwbutler6/greekdash/internal/models"
)

// Repository handles message_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a broadcast repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateMessageLog inserts a pending message log and fills in its ID.
func (r *Repository) CreateMessageLog(ctx context.Context, m *models.MessageLog) error {
	const q = `INSERT INTO message_logs (chapter_id, channel, kind, recipient, subject, body, status)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), $6, $7)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, m.ChapterID, m.Channel, m.Kind, m.Recipient, m.Subject, m.Body, m.Status).
		Scan(&m.ID, &m.CreatedAt)
}

// GetMessageLog returns one message log by ID.
func (r *Repository) GetMessageLog(ctx context.Context, id uuid.UUID) (*models.MessageLog, error) {
	const q = `SELECT id, chapter_id, channel, kind, recipient, COALESCE(subject,''), body, status, COALESCE(error_message,''), sent_at, created_at
		FROM message_logs WHERE id = $1`
	var m models.MessageLog
	err := r.pool.QueryRow(ctx, q, id).Scan(&m.ID, &m.ChapterID, &m.Channel, &m.Kind, &m.Recipient,
		&m.Subject, &m.Body, &m.Status, &m.ErrorMessage, &m.SentAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByChapter returns message logs for a chapter, newest first.
func (r *Repository) ListByChapter(ctx context.Context, chapterID uuid.UUID, kind string) ([]*models.MessageLog, error) {
	const q = `SELECT id, chapter_id, channel, kind, recipient, COALESCE(subject,''), body, status, COALESCE(error_message,''), sent_at, created_at
		FROM message_logs
		WHERE chapter_id = $1 AND ($2 = '' OR kind = $2)
		ORDER BY created_at DESC
		LIMIT 500`
	rows, err := r.pool.Query(ctx, q, chapterID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.MessageLog
	for rows.Next() {
		var m models.MessageLog
		if err := rows.Scan(&m.ID, &m.ChapterID, &m.Channel, &m.Kind, &m.Recipient,
			&m.Subject, &m.Body, &m.Status, &m.ErrorMessage, &m.SentAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

// MarkSent records a successful delivery.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE message_logs SET status = $2, sent_at = NOW(), error_message = NULL WHERE id = $1`,
		id, models.MessageStatusSent)
	return err
}

// MarkFailed records a delivery failure.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE message_logs SET status = $2, error_message = $3 WHERE id = $1`,
		id, models.MessageStatusFailed, errMsg)
	return err
}

// Recipient is one broadcast target.
type Recipient struct {
	UserID   uuid.UUID
	Email    string
	Phone    string
	FullName string
}

// ListActiveRecipients returns users with an approved membership in the
// chapter. Pending members are never broadcast targets.
func (r *Repository) ListActiveRecipients(ctx context.Context, chapterID uuid.UUID) ([]Recipient, error) {
	const q = `SELECT u.id, u.email, COALESCE(u.phone,''), u.full_name
		FROM memberships m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.chapter_id = $1 AND m.role <> 'pending_member'
		ORDER BY u.full_name, u.email`
	rows, err := r.pool.Query(ctx, q, chapterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Recipient
	for rows.Next() {
		var rec Recipient
		if err := rows.Scan(&rec.UserID, &rec.Email, &rec.Phone, &rec.FullName); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}
