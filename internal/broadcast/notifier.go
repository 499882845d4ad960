package broadcast

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cwbutler6/greekdash/internal/auth"
	"github.com/cwbutler6/greekdash/internal/models"
	"github.com/cwbutler6/greekdash/pkg/queue"
)

var _ auth.Notifier = (*Notifier)(nil)

// Notifier records an outbound message and hands delivery to the worker
// queue. Sends are fire-and-forget: enqueue failures are returned for the
// caller to log, never retried inline.
type Notifier struct {
	repo   *Repository
	queue  *queue.Queue
	logger *zap.Logger
}

// NewNotifier creates a notifier.
func NewNotifier(repo *Repository, q *queue.Queue, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{repo: repo, queue: q, logger: logger}
}

// SendEmail logs and enqueues one email. chapterID is nil for account-level
// mail (password resets).
func (n *Notifier) SendEmail(ctx context.Context, chapterID *uuid.UUID, kind, recipient, subject, bodyHTML string) error {
	m := &models.MessageLog{
		ChapterID: chapterID,
		Channel:   models.ChannelEmail,
		Kind:      kind,
		Recipient: recipient,
		Subject:   subject,
		Body:      bodyHTML,
		Status:    models.MessageStatusPending,
	}
	if err := n.repo.CreateMessageLog(ctx, m); err != nil {
		return err
	}
	payload := queue.EmailPayload{
		MessageLogID: m.ID,
		Recipient:    recipient,
		Subject:      subject,
		BodyHTML:     bodyHTML,
	}
	if chapterID != nil {
		payload.ChapterID = *chapterID
	}
	if err := n.queue.EnqueueEmail(ctx, payload); err != nil {
		if ferr := n.repo.MarkFailed(ctx, m.ID, "enqueue: "+err.Error()); ferr != nil {
			n.logger.Error("mark message failed", zap.Error(ferr), zap.String("message_id", m.ID.String()))
		}
		return err
	}
	return nil
}

// SendSMS logs and enqueues one SMS.
func (n *Notifier) SendSMS(ctx context.Context, chapterID *uuid.UUID, kind, recipient, body string) error {
	m := &models.MessageLog{
		ChapterID: chapterID,
		Channel:   models.ChannelSMS,
		Kind:      kind,
		Recipient: recipient,
		Body:      body,
		Status:    models.MessageStatusPending,
	}
	if err := n.repo.CreateMessageLog(ctx, m); err != nil {
		return err
	}
	payload := queue.SMSPayload{
		MessageLogID: m.ID,
		Recipient:    recipient,
		Body:         body,
	}
	if chapterID != nil {
		payload.ChapterID = *chapterID
	}
	if err := n.queue.EnqueueSMS(ctx, payload); err != nil {
		if ferr := n.repo.MarkFailed(ctx, m.ID, "enqueue: "+err.Error()); ferr != nil {
			n.logger.Error("mark message failed", zap.Error(ferr), zap.String("message_id", m.ID.String()))
		}
		return err
	}
	return nil
}
