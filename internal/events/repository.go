package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwbutler6/greekdash/internal/models"
)

// Repository handles event and RSVP persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, chapter_id, title, COALESCE(description,''), COALESCE(location,''), starts_at, ends_at, capacity, created_by, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.ChapterID, &e.Title, &e.Description, &e.Location,
		&e.StartsAt, &e.EndsAt, &e.Capacity, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts an event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (chapter_id, title, description, location, starts_at, ends_at, capacity, created_by)
		VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.ChapterID, e.Title, e.Description, e.Location,
		e.StartsAt, e.EndsAt, e.Capacity, e.CreatedBy).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event scoped to the chapter.
func (r *Repository) GetByID(ctx context.Context, chapterID, eventID uuid.UUID) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 AND chapter_id = $2`, eventID, chapterID))
}

// List returns a chapter's events, soonest first.
func (r *Repository) List(ctx context.Context, chapterID uuid.UUID) ([]*models.Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE chapter_id = $1 ORDER BY starts_at ASC`, chapterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// UpdateParams holds optional fields for partial event updates.
type UpdateParams struct {
	Title       *string
	Description *string
	Location    *string
	StartsAt    *time.Time
	EndsAt      *time.Time
	Capacity    *int
}

// Update applies a partial update scoped to the chapter.
func (r *Repository) Update(ctx context.Context, chapterID, eventID uuid.UUID, p UpdateParams) (*models.Event, error) {
	const q = `UPDATE events SET
		title = COALESCE($3, title),
		description = COALESCE($4, description),
		location = COALESCE($5, location),
		starts_at = COALESCE($6, starts_at),
		ends_at = COALESCE($7, ends_at),
		capacity = COALESCE($8, capacity),
		updated_at = NOW()
		WHERE id = $1 AND chapter_id = $2
		RETURNING ` + eventColumns
	return scanEvent(r.pool.QueryRow(ctx, q, eventID, chapterID,
		p.Title, p.Description, p.Location, p.StartsAt, p.EndsAt, p.Capacity))
}

// Delete removes an event scoped to the chapter. RSVPs cascade.
func (r *Repository) Delete(ctx context.Context, chapterID, eventID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM events WHERE id = $1 AND chapter_id = $2`, eventID, chapterID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpsertRSVP records or updates a member's RSVP, keyed by (event, user).
func (r *Repository) UpsertRSVP(ctx context.Context, eventID, userID uuid.UUID, status models.RSVPStatus) (*models.RSVP, error) {
	const q = `INSERT INTO rsvps (event_id, user_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, user_id) DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()
		RETURNING id, event_id, user_id, status, created_at, updated_at`
	var rsvp models.RSVP
	err := r.pool.QueryRow(ctx, q, eventID, userID, status).
		Scan(&rsvp.ID, &rsvp.EventID, &rsvp.UserID, &rsvp.Status, &rsvp.CreatedAt, &rsvp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rsvp, nil
}

// CountGoing returns the number of "going" RSVPs for an event.
func (r *Repository) CountGoing(ctx context.Context, eventID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM rsvps WHERE event_id = $1 AND status = 'going'`, eventID).Scan(&n)
	return n, err
}

// CountGoingOthers returns the number of "going" RSVPs excluding one user.
// The capacity check uses this so a member re-submitting their own "going"
// does not count against themselves.
func (r *Repository) CountGoingOthers(ctx context.Context, eventID, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM rsvps WHERE event_id = $1 AND status = 'going' AND user_id <> $2`,
		eventID, userID).Scan(&n)
	return n, err
}

// ListRSVPs returns an event's RSVPs joined with user details.
func (r *Repository) ListRSVPs(ctx context.Context, eventID uuid.UUID) ([]models.RSVPDetail, error) {
	const q = `SELECT r.id, r.user_id, u.email, u.full_name, r.status
		FROM rsvps r
		INNER JOIN users u ON u.id = r.user_id
		WHERE r.event_id = $1
		ORDER BY u.full_name, u.email`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.RSVPDetail
	for rows.Next() {
		var d models.RSVPDetail
		if err := rows.Scan(&d.ID, &d.UserID, &d.Email, &d.FullName, &d.Status); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}
