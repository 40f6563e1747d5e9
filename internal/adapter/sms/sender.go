package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Sender delivers one-time codes to a phone number.
type Sender interface {
	SendCode(ctx context.Context, phone, code string) error
}

// HTTPSender delivers codes through an SMS provider HTTP API.
type HTTPSender struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	senderName string
}

var _ Sender = (*HTTPSender)(nil)

// NewHTTPSender constructs the default Sender.
func NewHTTPSender(client *http.Client, endpoint, apiKey, senderName string) *HTTPSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSender{
		httpClient: client,
		endpoint:   endpoint,
		apiKey:     apiKey,
		senderName: senderName,
	}
}

// SendCode submits the message to the provider. The provider expects the
// recipient and message text as query parameters.
func (s *HTTPSender) SendCode(ctx context.Context, phone, code string) error {
	query := url.Values{}
	query.Set("to", phone)
	query.Set("sender", s.senderName)
	query.Set("message", fmt.Sprintf("Your %s verification code is %s", s.senderName, code))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms delivery failed: status=%d", resp.StatusCode)
	}
	return nil
}

// LogSender records deliveries without calling a provider. Used when no
// SMS API key is configured, typically in local development.
type LogSender struct {
	logger *zap.Logger
}

var _ Sender = (*LogSender)(nil)

// NewLogSender constructs a Sender that only logs.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendCode logs the delivery. The code itself is not written to the log.
func (s *LogSender) SendCode(_ context.Context, phone, _ string) error {
	s.logger.Info("sms delivery skipped, no provider configured", zap.String("phone", phone))
	return nil
}
