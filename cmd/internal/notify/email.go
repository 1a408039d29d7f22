package notify

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"strings"

	"github.com/mailersend/mailersend-go"
)

// EmailSender sends confirmations through MailerSend.
type EmailSender struct {
	client *mailersend.Mailersend
	from   mailersend.From
	log    *slog.Logger
}

// NewEmailSender returns nil when cfg has no MailerSend key or sender address.
func NewEmailSender(cfg Config, log *slog.Logger) *EmailSender {
	if !cfg.EmailConfigured() {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	return &EmailSender{
		client: mailersend.NewMailersend(cfg.MailerSendAPIKey),
		from:   mailersend.From{Name: cfg.MailFromName, Email: cfg.MailFrom},
		log:    log,
	}
}

// Notify sends msg to msg.ToEmail. Messages without an email are skipped.
func (e *EmailSender) Notify(ctx context.Context, msg Message) error {
	if e == nil || msg.ToEmail == "" {
		return nil
	}

	m := e.client.Email.NewMessage()
	m.SetFrom(e.from)
	m.SetRecipients([]mailersend.Recipient{{Name: msg.ToName, Email: msg.ToEmail}})
	m.SetSubject(msg.Subject)
	m.SetText(msg.Body)
	m.SetHTML(htmlBody(msg.Body))

	res, err := e.client.Email.Send(ctx, m)
	if err != nil {
		return fmt.Errorf("notify: mailersend send: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("notify: mailersend status=%d body=%s", res.StatusCode, strings.TrimSpace(string(b)))
	}
	e.log.InfoContext(ctx, "email.sent", "message_id", res.Header.Get("X-Message-Id"))
	return nil
}

// htmlBody renders plain paragraphs separated by blank lines.
func htmlBody(text string) string {
	var b strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(para), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}
