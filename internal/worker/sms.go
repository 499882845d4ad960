package worker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cwbutler6/greekdash/config"
)

// SMSSender delivers one SMS.
type SMSSender interface {
	Send(to, body string) error
}

// HTTPSMSSender posts messages to the configured SMS gateway.
type HTTPSMSSender struct {
	cfg    config.SMSConfig
	client *http.Client
}

// NewHTTPSMSSender creates an SMS sender over the provider's HTTP API.
func NewHTTPSMSSender(cfg config.SMSConfig) *HTTPSMSSender {
	return &HTTPSMSSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type smsRequest struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Body string `json:"body"`
}

// Send posts one message to the gateway.
func (s *HTTPSMSSender) Send(to, body string) error {
	if s.cfg.ProviderURL == "" {
		return fmt.Errorf("sms provider not configured")
	}

	payload, err := json.Marshal(smsRequest{To: to, From: s.cfg.FromNumber, Body: body})
	if err != nil {
		return fmt.Errorf("marshal sms request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.cfg.ProviderURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sms provider returned %d: %s", resp.StatusCode, string(b))
	}
	return nil
}
