package api

import (
	"time"

	"wedding/cmd/internal/guestbook"
	"wedding/cmd/internal/invite"
	"wedding/cmd/internal/report"
)

type resolveResponse struct {
	GuestName string `json:"guest_name"`
	Allowed   int    `json:"allowed"`
	RSVPLink  string `json:"rsvp_link"`
	Token     string `json:"token"`
}

type rsvpContextResponse struct {
	GuestName    string `json:"guest_name"`
	MaxAttendees int    `json:"max_attendees"`
	Used         bool   `json:"used"`
}

type submitRequest struct {
	Token     string `json:"token"`
	Status    string `json:"status"`
	Attendees int    `json:"attendees"`
	Phone     string `json:"phone"`
	Note      string `json:"note"`
}

type submitResponse struct {
	Status    guestbook.Status `json:"status"`
	Attendees int              `json:"attendees"`
	Message   string           `json:"message"`
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
}

type createGuestRequest struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	MaxAttendees int    `json:"max_attendees"`
}

type guestResponse struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	NameSlug  string    `json:"name_slug"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type createGuestResponse struct {
	Guest        guestResponse `json:"guest"`
	Code         string        `json:"code"`
	MaxAttendees int           `json:"max_attendees"`
	Link         string        `json:"link"`
}

type inviteRowResponse struct {
	GuestName    string           `json:"guest_name"`
	NameSlug     string           `json:"name_slug"`
	Email        *string          `json:"email,omitempty"`
	Phone        *string          `json:"phone,omitempty"`
	Code         string           `json:"code"`
	MaxAttendees int              `json:"max_attendees"`
	Used         bool             `json:"used"`
	Status       guestbook.Status `json:"status,omitempty"`
	Attendees    int              `json:"attendees,omitempty"`
	Note         *string          `json:"note,omitempty"`
	RespondedAt  *time.Time       `json:"responded_at,omitempty"`
	Link         string           `json:"link"`
}

type listGuestsResponse struct {
	Summary report.Summary      `json:"summary"`
	Invites []inviteRowResponse `json:"invites"`
}

func toGuestResponse(g guestbook.Guest) guestResponse {
	return guestResponse{
		ID:        g.ID,
		FullName:  g.FullName,
		NameSlug:  g.NameSlug,
		Email:     g.Email,
		Phone:     g.Phone,
		CreatedAt: g.CreatedAt,
	}
}

func toInviteRowResponse(r guestbook.InviteRow, baseURL string) inviteRowResponse {
	out := inviteRowResponse{
		GuestName:    r.Guest.FullName,
		NameSlug:     r.Guest.NameSlug,
		Email:        r.Guest.Email,
		Phone:        r.Guest.Phone,
		Code:         r.Invite.Code,
		MaxAttendees: r.Invite.MaxAttendees,
		Used:         !r.Invite.Available(),
		Link:         baseURL + invite.InviteLink(r.Guest.NameSlug, r.Invite.Code, r.Invite.MaxAttendees),
	}
	if r.Response != nil {
		at := r.Response.RespondedAt
		out.Status = r.Response.Status
		out.Attendees = r.Response.Attendees
		out.Note = r.Response.Note
		out.RespondedAt = &at
	}
	return out
}
