package rsvp

import (
	"strings"
	"testing"

	"wedding/cmd/internal/guestbook"
)

func TestThankYouMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status guestbook.Status
		want   string
	}{
		{status: guestbook.StatusAttending, want: "thrilled to hear that you'll be attending"},
		{status: guestbook.StatusNotAttending, want: "we'll miss having you"},
		{status: guestbook.StatusUndecided, want: "Kindly let us know when you decide."},
	}
	for _, tc := range cases {
		got := ThankYouMessage(tc.status, "")
		if !strings.Contains(got, tc.want) {
			t.Fatalf("%s: message=%q want substring %q", tc.status, got, tc.want)
		}
		if !strings.HasSuffix(got, DefaultCouple) {
			t.Fatalf("%s: message not signed by %q", tc.status, DefaultCouple)
		}
	}
}

func TestThankYouSubject(t *testing.T) {
	t.Parallel()

	if got := ThankYouSubject("Ada & Tobi"); got != "Your RSVP to Ada & Tobi's wedding" {
		t.Fatalf("subject=%q", got)
	}
}
