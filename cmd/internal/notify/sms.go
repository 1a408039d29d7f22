package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// SMSSender posts {to, message} to a bearer-authenticated HTTP gateway.
type SMSSender struct {
	url     string
	key     string
	devMode bool
	client  *http.Client
	log     *slog.Logger
}

// NewSMSSender builds a sender from cfg. client may be nil.
func NewSMSSender(cfg Config, client *http.Client, log *slog.Logger) *SMSSender {
	if client == nil {
		client = &http.Client{Timeout: cfg.SMSTimeout}
	}
	if log == nil {
		log = slog.Default()
	}
	return &SMSSender{
		url:     strings.TrimSpace(cfg.SMSAPIURL),
		key:     strings.TrimSpace(cfg.SMSAPIKey),
		devMode: cfg.DevMode,
		client:  client,
		log:     log,
	}
}

type smsRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// Notify sends msg.Body to msg.ToPhone. Messages without a phone are skipped.
func (s *SMSSender) Notify(ctx context.Context, msg Message) error {
	if msg.ToPhone == "" {
		return nil
	}
	if s.url == "" || s.key == "" {
		if s.devMode {
			s.log.InfoContext(ctx, "sms.dev", "to", maskPhone(msg.ToPhone), "chars", len(msg.Body))
			return nil
		}
		return ErrSMSNotConfigured
	}

	body, err := json.Marshal(smsRequest{To: msg.ToPhone, Message: msg.Body})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.key)

	start := time.Now()
	res, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: sms send: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("notify: sms gateway status=%d body=%s", res.StatusCode, strings.TrimSpace(string(b)))
	}
	_, _ = io.Copy(io.Discard, res.Body)

	s.log.InfoContext(ctx, "sms.sent", "to", maskPhone(msg.ToPhone), "dur_ms", time.Since(start).Milliseconds())
	return nil
}

// maskPhone keeps the last four digits.
func maskPhone(p string) string {
	if len(p) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(p)-4) + p[len(p)-4:]
}
