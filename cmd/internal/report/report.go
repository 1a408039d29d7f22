// Package report builds the admin dashboard summary and the guest list export.
package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"wedding/cmd/internal/guestbook"
	"wedding/cmd/internal/invite"
)

// NoResponse is the status column value for unanswered invites.
const NoResponse = "No Response"

// Header is the export column order.
var Header = []string{
	"Guest Name",
	"Email",
	"Phone",
	"Invite Code",
	"Max Guests",
	"RSVP Status",
	"Attendees",
	"Responded Date",
	"Note",
	"Invite Link",
}

// Summary is the attendance overview for the dashboard.
type Summary struct {
	TotalGuests  int `json:"total_guests"`
	TotalCodes   int `json:"total_codes"`
	Responded    int `json:"responded"`
	Attending    int `json:"attending"`
	NotAttending int `json:"not_attending"`
	Undecided    int `json:"undecided"`
	NotResponded int `json:"not_responded"`
	// ExpectedAttendees counts attending parties in full and undecided parties at half,
	// rounded up per response.
	ExpectedAttendees int `json:"expected_attendees"`
}

// Summarize aggregates invite rows.
func Summarize(rows []guestbook.InviteRow) Summary {
	var s Summary
	guests := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		guests[r.Guest.ID] = struct{}{}
		s.TotalCodes++

		if r.Response == nil {
			s.NotResponded++
			continue
		}
		s.Responded++
		switch r.Response.Status {
		case guestbook.StatusAttending:
			s.Attending++
			s.ExpectedAttendees += r.Response.Attendees
		case guestbook.StatusNotAttending:
			s.NotAttending++
		case guestbook.StatusUndecided:
			s.Undecided++
			s.ExpectedAttendees += (r.Response.Attendees + 1) / 2
		}
	}
	s.TotalGuests = len(guests)
	return s
}

// WriteCSV writes one line per invite code. baseURL prefixes the invite link.
func WriteCSV(w io.Writer, rows []guestbook.InviteRow, baseURL string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	base := strings.TrimRight(baseURL, "/")
	for _, r := range rows {
		rec := []string{
			r.Guest.FullName,
			deref(r.Guest.Email),
			deref(r.Guest.Phone),
			r.Invite.Code,
			strconv.Itoa(r.Invite.MaxAttendees),
			NoResponse,
			"",
			"",
			"",
			base + invite.InviteLink(r.Guest.NameSlug, r.Invite.Code, r.Invite.MaxAttendees),
		}
		if r.Response != nil {
			rec[5] = string(r.Response.Status)
			rec[6] = strconv.Itoa(r.Response.Attendees)
			rec[7] = r.Response.RespondedAt.UTC().Format(time.DateOnly)
			rec[8] = deref(r.Response.Note)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename is the attachment name for an export taken at now.
func ExportFilename(now time.Time) string {
	return "wedding-guest-list-" + now.UTC().Format(time.DateOnly) + ".csv"
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
