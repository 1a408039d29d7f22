package guestbook

import (
	"context"
	"strings"
	"time"
)

// GuestInviteRecord upserts a guest by NameSlug and attaches a new invite code.
// GuestID is used only when the slug is new; an existing guest keeps its id.
type GuestInviteRecord struct {
	GuestID  string
	FullName string
	NameSlug string
	Email    *string
	Phone    *string

	InviteID     string
	Code         string
	MaxAttendees int

	Now time.Time
}

// SubmitRecord is the RSVP transition payload. SubmitResponse applies it atomically:
// guest phone+note update, response insert, invite used_at.
type SubmitRecord struct {
	ResponseID string
	GuestID    string
	CodeID     string
	Phone      string
	Note       *string
	Status     Status
	Attendees  int
	Now        time.Time
}

// Store is the persistence boundary for the invite and RSVP flows.
type Store interface {
	CodeExists(ctx context.Context, code string) (bool, error)
	CreateGuestInvite(ctx context.Context, in GuestInviteRecord) (Guest, InviteCode, error)
	// FindInviteByCode returns the invite and its owner; owner is nil when unassigned.
	FindInviteByCode(ctx context.Context, code string) (InviteCode, *Guest, error)
	GetGuest(ctx context.Context, id string) (Guest, error)
	ResponseExists(ctx context.Context, codeID string) (bool, error)
	SubmitResponse(ctx context.Context, in SubmitRecord) (Response, error)
	// ListInvites returns every invite ordered by guest full name, then code creation time.
	ListInvites(ctx context.Context) ([]InviteRow, error)
	Close() error
}

func (in GuestInviteRecord) validate() error {
	if strings.TrimSpace(in.GuestID) == "" || strings.TrimSpace(in.InviteID) == "" {
		return ErrInvalidInput
	}
	if strings.TrimSpace(in.FullName) == "" || strings.TrimSpace(in.NameSlug) == "" {
		return ErrInvalidInput
	}
	if strings.TrimSpace(in.Code) == "" || in.MaxAttendees < 1 {
		return ErrInvalidInput
	}
	return nil
}

func (in SubmitRecord) validate() error {
	if strings.TrimSpace(in.ResponseID) == "" || strings.TrimSpace(in.GuestID) == "" || strings.TrimSpace(in.CodeID) == "" {
		return ErrInvalidInput
	}
	if strings.TrimSpace(in.Phone) == "" || !in.Status.Valid() || in.Attendees < 1 {
		return ErrInvalidInput
	}
	return nil
}

func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
