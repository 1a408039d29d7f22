package invite

import (
	"context"
	"errors"

	"wedding/cmd/identity"
	"wedding/cmd/internal/guestbook"
	"wedding/cmd/internal/metrics"
)

// ResolveInput is what a guest presents when opening an invite link.
type ResolveInput struct {
	// Slug is the already-decoded path segment; it is not unescaped again.
	Slug      string
	Code      string
	Requested int
}

// Resolution is a verified invite ready for RSVP.
type Resolution struct {
	Guest   guestbook.Guest
	Invite  guestbook.InviteCode
	Allowed int
	Token   string
	// RSVPLink is /rsvp?token=... with the token query-escaped.
	RSVPLink string
}

// Resolve checks that code belongs to the guest named by slug and is unused, then mints
// a capability token for the RSVP step.
func (s *Service) Resolve(ctx context.Context, in ResolveInput) (Resolution, error) {
	if s == nil || s.store == nil {
		return Resolution{}, ErrInvalidInput
	}
	res, outcome, err := s.resolve(ctx, in)
	s.metrics.InviteResolved(outcome)
	if err != nil {
		if outcome == metrics.OutcomeError {
			s.log.ErrorContext(ctx, "invite.resolve.fail", "err", err)
		} else {
			s.log.InfoContext(ctx, "invite.resolve.reject", "outcome", outcome)
		}
		return Resolution{}, err
	}
	s.log.InfoContext(ctx, "invite.resolved", "guest_id", res.Guest.ID, "allowed", res.Allowed)
	return res, nil
}

func (s *Service) resolve(ctx context.Context, in ResolveInput) (Resolution, string, error) {
	code := NormalizeCode(in.Code)
	if !ValidCodeFormat(code) {
		return Resolution{}, metrics.OutcomeInvalidCode, ErrInvalidCode
	}

	slug := identity.Slugify(in.Slug)

	inv, owner, err := s.store.FindInviteByCode(ctx, code)
	if err != nil {
		if errors.Is(err, guestbook.ErrNotFound) {
			return Resolution{}, metrics.OutcomeNotFound, ErrNotFound
		}
		return Resolution{}, metrics.OutcomeError, err
	}
	if owner == nil || slug == "" || owner.NameSlug != slug {
		return Resolution{}, metrics.OutcomeNotFound, ErrNotFound
	}
	if !inv.Available() {
		return Resolution{}, metrics.OutcomeAlreadyUsed, ErrAlreadyUsed
	}

	tok, err := s.signer.Sign(owner.ID, inv.Code)
	if err != nil {
		return Resolution{}, metrics.OutcomeError, err
	}

	return Resolution{
		Guest:    *owner,
		Invite:   inv,
		Allowed:  Clamp(in.Requested, MinAttendees, inv.MaxAttendees),
		Token:    tok,
		RSVPLink: RSVPLink(tok),
	}, metrics.OutcomeResolved, nil
}
