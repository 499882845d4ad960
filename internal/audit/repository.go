package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwbutler6/greekdash/internal/models"
)

// Repository handles audit_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an audit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record writes one audit entry. detail must be the payload shape for the
// action (see models.DecodeAuditDetail).
func (r *Repository) Record(ctx context.Context, chapterID, actorID uuid.UUID, action models.AuditAction, detail models.AuditDetail) error {
	raw, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_logs (chapter_id, actor_id, action, detail) VALUES ($1, $2, $3, $4)`,
		chapterID, actorID, action, raw)
	return err
}

// RecordTx writes one audit entry inside an existing transaction, so the
// audit row commits or rolls back with the mutation it describes.
func (r *Repository) RecordTx(ctx context.Context, tx pgx.Tx, chapterID, actorID uuid.UUID, action models.AuditAction, detail models.AuditDetail) error {
	raw, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO audit_logs (chapter_id, actor_id, action, detail) VALUES ($1, $2, $3, $4)`,
		chapterID, actorID, action, raw)
	return err
}

// List returns audit entries for a chapter, newest first.
func (r *Repository) List(ctx context.Context, chapterID uuid.UUID, limit int) ([]*models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `SELECT id, chapter_id, actor_id, action, detail, created_at
		FROM audit_logs WHERE chapter_id = $1
		ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, chapterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.AuditLog
	for rows.Next() {
		var a models.AuditLog
		if err := rows.Scan(&a.ID, &a.ChapterID, &a.ActorID, &a.Action, &a.Detail, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}
