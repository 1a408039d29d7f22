package notify

import (
	"log/slog"
	"net/http"
)

// New assembles the notifier for cfg: SMS always (dev mode may only log), email when
// MailerSend is configured.
func New(cfg Config, client *http.Client, log *slog.Logger) Notifier {
	out := Multi{NewSMSSender(cfg, client, log)}
	if e := NewEmailSender(cfg, log); e != nil {
		out = append(out, e)
	}
	return out
}
