package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageChannel is the outbound delivery channel.
type MessageChannel string

const (
	ChannelEmail MessageChannel = "email"
	ChannelSMS   MessageChannel = "sms"
)

// MessageKind classifies what triggered the send.
const (
	MessageKindBroadcast     = "broadcast"
	MessageKindInvite        = "invite"
	MessageKindPasswordReset = "password_reset"
)

// Message delivery status.
const (
	MessageStatusPending = "pending"
	MessageStatusSent    = "sent"
	MessageStatusFailed  = "failed"
)

// MessageLog records one outbound email or SMS. Delivery is fire-and-forget:
// the worker updates status, failures are logged and eventually dead-lettered.
type MessageLog struct {
	ID           uuid.UUID      `json:"id"`
	ChapterID    *uuid.UUID     `json:"chapter_id,omitempty"`
	Channel      MessageChannel `json:"channel"`
	Kind         string         `json:"kind"`
	Recipient    string         `json:"recipient"`
	Subject      string         `json:"subject,omitempty"`
	Body         string         `json:"-"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
