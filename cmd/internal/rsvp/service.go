package rsvp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"wedding/cmd/identity"
	"wedding/cmd/internal/events"
	"wedding/cmd/internal/guestbook"
	"wedding/cmd/internal/invite"
	"wedding/cmd/internal/metrics"
	"wedding/cmd/internal/notify"
	"wedding/cmd/security/token"
)

const notifyTimeout = 10 * time.Second

// Rejection reasons recorded in metrics.
const (
	reasonInvalidStatus    = "invalid_status"
	reasonInvalidLink      = "invalid_link"
	reasonInvalidPhone     = "invalid_phone"
	reasonAlreadySubmitted = "already_submitted"
)

// TokenVerifier checks a capability token.
type TokenVerifier interface {
	Verify(tok string) (token.Payload, error)
}

// Context is what a valid token resolves to.
type Context struct {
	Guest  guestbook.Guest
	Invite guestbook.InviteCode
	Used   bool
}

// SubmitInput is the guest's RSVP form.
type SubmitInput struct {
	Token     string
	Status    string
	Attendees int
	Phone     string
	Note      string
}

// Result is a committed RSVP and the thank-you text for it.
type Result struct {
	Response guestbook.Response
	Message  string
}

// Service runs the RSVP transition.
type Service struct {
	store    guestbook.Store
	verifier TokenVerifier

	notifier notify.Notifier
	events   events.Publisher
	metrics  *metrics.Recorder
	log      *slog.Logger
	couple   string
	now      func() time.Time
}

// Option configures the Service.
type Option func(*Service) error

// WithNotifier sets where thank-you messages go after a committed submit. nil keeps Noop.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) error {
		if n != nil {
			s.notifier = n
		}
		return nil
	}
}

// WithPublisher sets the sink for rsvp.submitted events. nil keeps the no-op publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) error {
		if p != nil {
			s.events = p
		}
		return nil
	}
}

// WithMetrics records submissions and rejections. A nil Recorder is allowed.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Service) error {
		s.metrics = m
		return nil
	}
}

// WithLogger overrides the logger. nil keeps slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) error {
		if log != nil {
			s.log = log
		}
		return nil
	}
}

// WithCouple sets the signature on thank-you messages.
func WithCouple(names string) Option {
	return func(s *Service) error {
		s.couple = strings.TrimSpace(names)
		return nil
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) error {
		if now == nil {
			return ErrInvalidInput
		}
		s.now = now
		return nil
	}
}

// NewService constructs a Service.
func NewService(store guestbook.Store, verifier TokenVerifier, opts ...Option) (*Service, error) {
	if store == nil || verifier == nil {
		return nil, ErrInvalidInput
	}
	s := &Service{
		store:    store,
		verifier: verifier,
		notifier: notify.Noop{},
		events:   events.Nop{},
		log:      slog.Default(),
		couple:   DefaultCouple,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Open resolves a capability token to its guest and invite.
func (s *Service) Open(ctx context.Context, tok string) (Context, error) {
	if err := ctx.Err(); err != nil {
		return Context{}, err
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return Context{}, ErrInvalidLink
	}
	p, err := s.verifier.Verify(tok)
	if err != nil {
		return Context{}, ErrInvalidLink
	}

	g, err := s.store.GetGuest(ctx, p.GuestID)
	if err != nil {
		if errors.Is(err, guestbook.ErrNotFound) {
			return Context{}, ErrInvalidLink
		}
		return Context{}, err
	}
	inv, _, err := s.store.FindInviteByCode(ctx, p.Code)
	if err != nil {
		if errors.Is(err, guestbook.ErrNotFound) {
			return Context{}, ErrInvalidLink
		}
		return Context{}, err
	}
	if inv.GuestID != g.ID {
		return Context{}, ErrInvalidLink
	}
	return Context{Guest: g, Invite: inv, Used: !inv.Available()}, nil
}

// Submit validates the form, then records the response and consumes the code in one
// store transaction. Every rejection happens before any write.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Result, error) {
	res, reason, err := s.submit(ctx, in)
	if err != nil {
		if reason != "" {
			s.metrics.RSVPRejected(reason)
			s.log.InfoContext(ctx, "rsvp.reject", "reason", reason)
		}
		return Result{}, err
	}
	return res, nil
}

func (s *Service) submit(ctx context.Context, in SubmitInput) (Result, string, error) {
	const op = "rsvp.Submit"

	status, err := guestbook.ParseStatus(in.Status)
	if err != nil {
		return Result{}, reasonInvalidStatus, ErrInvalidStatus
	}

	rc, err := s.Open(ctx, in.Token)
	if err != nil {
		if errors.Is(err, ErrInvalidLink) {
			return Result{}, reasonInvalidLink, err
		}
		return Result{}, "", err
	}
	if rc.Used {
		return Result{}, reasonAlreadySubmitted, ErrAlreadySubmitted
	}

	attendees := invite.Clamp(in.Attendees, invite.MinAttendees, rc.Invite.MaxAttendees)

	phone, err := identity.NormalizePhone(in.Phone)
	if err != nil {
		return Result{}, reasonInvalidPhone, ErrInvalidPhone
	}

	exists, err := s.store.ResponseExists(ctx, rc.Invite.ID)
	if err != nil {
		return Result{}, "", err
	}
	if exists {
		return Result{}, reasonAlreadySubmitted, ErrAlreadySubmitted
	}

	now := s.now()
	respID, err := identity.NewULID(now)
	if err != nil {
		return Result{}, "", err
	}
	resp, err := s.store.SubmitResponse(ctx, guestbook.SubmitRecord{
		ResponseID: respID,
		GuestID:    rc.Guest.ID,
		CodeID:     rc.Invite.ID,
		Phone:      phone,
		Note:       identity.OptionalString(in.Note),
		Status:     status,
		Attendees:  attendees,
		Now:        now,
	})
	switch {
	case errors.Is(err, guestbook.ErrAlreadySubmitted):
		return Result{}, reasonAlreadySubmitted, ErrAlreadySubmitted
	case errors.Is(err, guestbook.ErrNotFound):
		return Result{}, reasonInvalidLink, ErrInvalidLink
	case err != nil:
		return Result{}, "", fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.RSVPSubmitted(string(resp.Status))
	s.log.InfoContext(ctx, "rsvp.submitted",
		"guest_id", rc.Guest.ID,
		"status", resp.Status,
		"attendees", resp.Attendees,
	)

	msg := ThankYouMessage(resp.Status, s.couple)
	s.afterCommit(ctx, rc, phone, resp, msg)

	return Result{Response: resp, Message: msg}, "", nil
}

// afterCommit runs the best-effort side effects. Failures are logged, never returned:
// the response is already durable.
func (s *Service) afterCommit(ctx context.Context, rc Context, phone string, resp guestbook.Response, msg string) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	out := notify.Message{
		ToPhone: phone,
		ToName:  rc.Guest.FullName,
		Subject: ThankYouSubject(s.couple),
		Body:    msg,
	}
	if rc.Guest.Email != nil {
		out.ToEmail = *rc.Guest.Email
	}
	if err := s.notifier.Notify(nctx, out); err != nil {
		s.log.WarnContext(ctx, "rsvp.notify.fail", "guest_id", rc.Guest.ID, "err", err)
	}

	if err := s.events.Publish(nctx, events.SubjectRSVPSubmitted, events.RSVPSubmitted{
		GuestID:     rc.Guest.ID,
		GuestName:   rc.Guest.FullName,
		Code:        rc.Invite.Code,
		Status:      string(resp.Status),
		Attendees:   resp.Attendees,
		RespondedAt: resp.RespondedAt,
	}); err != nil {
		s.log.WarnContext(ctx, "rsvp.event.fail", "err", err)
	}
}
