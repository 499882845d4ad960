package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cwbutler6/greekdash/pkg/queue"
)

type fakeEmailSender struct {
	sent []string
	err  error
}

func (f *fakeEmailSender) Send(to, subject, bodyHTML string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakeSMSSender struct {
	sent []string
	err  error
}

func (f *fakeSMSSender) Send(to, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

func emailJob(t *testing.T) *queue.Job {
	t.Helper()
	payload, err := json.Marshal(queue.EmailPayload{
		MessageLogID: uuid.New(),
		Recipient:    "member@example.com",
		Subject:      "Chapter meeting",
		BodyHTML:     "<p>Tonight at 7.</p>",
	})
	require.NoError(t, err)
	return &queue.Job{ID: "j1", Type: queue.JobTypeEmail, Payload: payload}
}

func TestProcessEmailSendFailurePropagates(t *testing.T) {
	email := &fakeEmailSender{err: errors.New("smtp down")}
	p := NewProcessor(nil, nil, email, &fakeSMSSender{}, nil)

	err := p.Process(context.Background(), emailJob(t))
	require.Error(t, err)
	require.Empty(t, email.sent)
}

func TestProcessSMSSendFailurePropagates(t *testing.T) {
	payload, err := json.Marshal(queue.SMSPayload{
		MessageLogID: uuid.New(),
		Recipient:    "+15555550100",
		Body:         "Meeting tonight",
	})
	require.NoError(t, err)
	job := &queue.Job{ID: "j2", Type: queue.JobTypeSMS, Payload: payload}

	sms := &fakeSMSSender{err: errors.New("gateway 500")}
	p := NewProcessor(nil, nil, &fakeEmailSender{}, sms, nil)

	require.Error(t, p.Process(context.Background(), job))
}

func TestProcessUnknownJobType(t *testing.T) {
	p := NewProcessor(nil, nil, &fakeEmailSender{}, &fakeSMSSender{}, nil)
	err := p.Process(context.Background(), &queue.Job{ID: "j3", Type: queue.JobType("fax")})
	require.Error(t, err)
}

func TestProcessBadPayload(t *testing.T) {
	p := NewProcessor(nil, nil, &fakeEmailSender{}, &fakeSMSSender{}, nil)
	err := p.Process(context.Background(), &queue.Job{
		ID: "j4", Type: queue.JobTypeEmail, Payload: []byte(`{broken`),
	})
	require.Error(t, err)
}
