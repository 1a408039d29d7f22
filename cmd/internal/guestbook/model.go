package guestbook

import (
	"fmt"
	"strings"
	"time"
)

// Status is the closed set of RSVP answers.
type Status string

const (
	StatusAttending    Status = "ATTENDING"
	StatusNotAttending Status = "NOT_ATTENDING"
	StatusUndecided    Status = "UNDECIDED"
)

// ParseStatus accepts the canonical names and the short YES/NO/MAYBE form, case-insensitively.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ATTENDING", "YES":
		return StatusAttending, nil
	case "NOT_ATTENDING", "NO":
		return StatusNotAttending, nil
	case "UNDECIDED", "MAYBE":
		return StatusUndecided, nil
	default:
		return "", fmt.Errorf("status %q: %w", raw, ErrInvalidInput)
	}
}

// Valid reports whether s is one of the three variants.
func (s Status) Valid() bool {
	switch s {
	case StatusAttending, StatusNotAttending, StatusUndecided:
		return true
	}
	return false
}

// Guest is an invited person. NameSlug is the external identity key.
type Guest struct {
	ID        string
	FullName  string
	NameSlug  string
	Email     *string
	Phone     *string
	Note      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InviteCode is a single-use RSVP capability owned by one guest.
type InviteCode struct {
	ID           string
	Code         string
	MaxAttendees int
	GuestID      string
	UsedAt       *time.Time
	CreatedAt    time.Time
}

// Available reports whether the code can still be consumed.
func (c InviteCode) Available() bool { return c.UsedAt == nil }

// Response is the immutable RSVP recorded for one invite code.
type Response struct {
	ID          string
	GuestID     string
	CodeID      string
	Status      Status
	Attendees   int
	Note        *string
	RespondedAt time.Time
}

// InviteRow is one invite code with its owner and optional response, for admin views.
type InviteRow struct {
	Guest    Guest
	Invite   InviteCode
	Response *Response
}
