package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cwbutler6/greekdash/internal/broadcast"
	"github.com/cwbutler6/greekdash/pkg/queue"
)

// Processor consumes message delivery jobs and updates their message logs.
type Processor struct {
	queue  *queue.Queue
	repo   *broadcast.Repository
	email  EmailSender
	sms    SMSSender
	logger *zap.Logger
}

// NewProcessor creates a message delivery processor.
func NewProcessor(q *queue.Queue, repo *broadcast.Repository, email EmailSender, sms SMSSender, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{queue: q, repo: repo, email: email, sms: sms, logger: logger}
}

// Run consumes jobs until ctx is canceled. Failed jobs are retried with the
// queue's retry/DLQ policy; the message log is marked failed only once the
// job is out of retries.
func (p *Processor) Run(ctx context.Context) error {
	p.logger.Info("message worker started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("message worker stopping")
			return ctx.Err()
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error("dequeue failed", zap.Error(err))
			continue
		}
		if job == nil {
			continue
		}

		if err := p.Process(ctx, job); err != nil {
			p.logger.Warn("job processing failed",
				zap.Error(err), zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
			if job.Attempt+1 >= queue.MaxRetries {
				p.markFailed(ctx, job, err)
			}
			if retryErr := p.queue.Retry(ctx, job); retryErr != nil {
				p.logger.Error("retry failed", zap.Error(retryErr), zap.String("job_id", job.ID))
			}
		}
	}
}

// Process delivers one job and marks its message log sent.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeEmail:
		var payload queue.EmailPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal email payload: %w", err)
		}
		if err := p.email.Send(payload.Recipient, payload.Subject, payload.BodyHTML); err != nil {
			return err
		}
		return p.repo.MarkSent(ctx, payload.MessageLogID)

	case queue.JobTypeSMS:
		var payload queue.SMSPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal sms payload: %w", err)
		}
		if err := p.sms.Send(payload.Recipient, payload.Body); err != nil {
			return err
		}
		return p.repo.MarkSent(ctx, payload.MessageLogID)

	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// markFailed records the terminal failure on the message log. Both payload
// shapes carry message_log_id, so a partial decode is enough.
func (p *Processor) markFailed(ctx context.Context, job *queue.Job, cause error) {
	var payload struct {
		MessageLogID uuid.UUID `json:"message_log_id"`
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil || payload.MessageLogID == uuid.Nil {
		return
	}
	if err := p.repo.MarkFailed(ctx, payload.MessageLogID, cause.Error()); err != nil {
		p.logger.Error("mark failed update failed", zap.Error(err), zap.String("job_id", job.ID))
	}
}
