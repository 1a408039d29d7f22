package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wedding/cmd/identity"
	"wedding/cmd/internal/events"
	"wedding/cmd/internal/guestbook"
	"wedding/cmd/internal/metrics"
)

const (
	// MaxCodeAttempts bounds the collision retries of CreateGuestInvite.
	MaxCodeAttempts = 50

	MinAttendees = 1
	MaxAttendees = 10
)

// TokenSigner mints capability tokens for a guest and code.
type TokenSigner interface {
	Sign(guestID, code string) (string, error)
}

// CreateInput describes a guest invite request from the admin.
type CreateInput struct {
	FullName     string
	Email        string
	Phone        string
	MaxAttendees int
	Now          time.Time
}

// Created is the outcome of CreateGuestInvite.
type Created struct {
	Guest  guestbook.Guest
	Invite guestbook.InviteCode
	// Link is the relative invite path: /invite/{slug}?code=C&n=N.
	Link string
}

// Service issues and resolves invites.
type Service struct {
	store  guestbook.Store
	signer TokenSigner
	gen    *Generator

	log     *slog.Logger
	events  events.Publisher
	metrics *metrics.Recorder
}

// Option configures the Service.
type Option func(*Service) error

// WithGenerator overrides the code source (tests).
func WithGenerator(g *Generator) Option {
	return func(s *Service) error {
		if g == nil {
			return ErrInvalidInput
		}
		s.gen = g
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) error {
		if log != nil {
			s.log = log
		}
		return nil
	}
}

// WithPublisher sets where invite.created events go.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) error {
		if p != nil {
			s.events = p
		}
		return nil
	}
}

// WithMetrics sets the counter recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Service) error {
		s.metrics = m
		return nil
	}
}

// NewService constructs a Service. The signer is required so resolution can mint tokens.
func NewService(store guestbook.Store, signer TokenSigner, opts ...Option) (*Service, error) {
	if store == nil || signer == nil {
		return nil, ErrInvalidInput
	}
	s := &Service{
		store:  store,
		signer: signer,
		gen:    NewGenerator(nil),
		log:    slog.Default(),
		events: events.Nop{},
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

// CreateGuestInvite upserts the guest by name slug and attaches a fresh unique code.
func (s *Service) CreateGuestInvite(ctx context.Context, in CreateInput) (Created, error) {
	const op = "invite.CreateGuestInvite"

	if s == nil || s.store == nil {
		return Created{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Created{}, err
	}

	name := identity.NormalizeName(in.FullName)
	if name == "" {
		return Created{}, identity.Invalid(op, "full name is required")
	}
	slug := identity.Slugify(name)
	if slug == "" {
		return Created{}, identity.Invalid(op, "full name has no usable characters")
	}
	phone, err := identity.NormalizePhone(in.Phone)
	if err != nil {
		return Created{}, identity.OpError{Op: op, Kind: ErrInvalidPhone}
	}
	var email *string
	if e := identity.NormalizeEmail(in.Email); e != "" {
		email = &e
	}
	maxAttendees := Clamp(in.MaxAttendees, MinAttendees, MaxAttendees)

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	guestID, err := identity.NewULID(now)
	if err != nil {
		return Created{}, err
	}

	for attempt := 1; attempt <= MaxCodeAttempts; attempt++ {
		code, err := s.gen.Generate()
		if err != nil {
			return Created{}, fmt.Errorf("%s: generate code: %w", op, err)
		}

		taken, err := s.store.CodeExists(ctx, code)
		if err != nil {
			return Created{}, err
		}
		if taken {
			continue
		}

		inviteID, err := identity.NewULID(now)
		if err != nil {
			return Created{}, err
		}
		g, inv, err := s.store.CreateGuestInvite(ctx, guestbook.GuestInviteRecord{
			GuestID:      guestID,
			FullName:     name,
			NameSlug:     slug,
			Email:        email,
			Phone:        &phone,
			InviteID:     inviteID,
			Code:         code,
			MaxAttendees: maxAttendees,
			Now:          now,
		})
		if errors.Is(err, guestbook.ErrCodeTaken) {
			// Lost a race for this code between the existence check and the insert.
			continue
		}
		if err != nil {
			return Created{}, err
		}

		s.metrics.InviteCreated()
		s.log.InfoContext(ctx, "invite.created",
			"guest_id", g.ID,
			"slug", g.NameSlug,
			"max_attendees", inv.MaxAttendees,
			"attempts", attempt,
		)
		if err := s.events.Publish(ctx, events.SubjectInviteCreated, events.InviteCreated{
			GuestID:      g.ID,
			GuestName:    g.FullName,
			NameSlug:     g.NameSlug,
			Code:         inv.Code,
			MaxAttendees: inv.MaxAttendees,
			CreatedAt:    inv.CreatedAt,
		}); err != nil {
			s.log.WarnContext(ctx, "invite.event.fail", "err", err)
		}

		return Created{
			Guest:  g,
			Invite: inv,
			Link:   InviteLink(g.NameSlug, inv.Code, inv.MaxAttendees),
		}, nil
	}

	s.log.ErrorContext(ctx, "invite.code_space_exhausted", "attempts", MaxCodeAttempts)
	return Created{}, fmt.Errorf("%s: %w", op, ErrCodeSpaceExhausted)
}

// Clamp bounds n to [lo, hi].
func Clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
