// Package events carries domain events out of the invite and RSVP flows: to NATS for other
// services and to the in-process Hub that feeds the admin live view.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Subjects.
const (
	SubjectInviteCreated = "wedding.invite.created"
	SubjectRSVPSubmitted = "wedding.rsvp.submitted"
)

// EnvelopeVersion is the feed wire version.
const EnvelopeVersion = 1

// Publisher delivers an event payload (JSON-encoded) under subject.
// Publish must not block on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
	Close() error
}

// InviteCreated is published after a guest invite is issued.
type InviteCreated struct {
	GuestID      string    `json:"guest_id"`
	GuestName    string    `json:"guest_name"`
	NameSlug     string    `json:"name_slug"`
	Code         string    `json:"code"`
	MaxAttendees int       `json:"max_attendees"`
	CreatedAt    time.Time `json:"created_at"`
}

// RSVPSubmitted is published after a response commits.
type RSVPSubmitted struct {
	GuestID     string    `json:"guest_id"`
	GuestName   string    `json:"guest_name"`
	Code        string    `json:"code"`
	Status      string    `json:"status"`
	Attendees   int       `json:"attendees"`
	RespondedAt time.Time `json:"responded_at"`
}

// Envelope is one feed frame.
type Envelope struct {
	V       int             `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error                               { return nil }
