package rsvp

import (
	"strings"

	"wedding/cmd/internal/guestbook"
)

// DefaultCouple signs the thank-you messages.
const DefaultCouple = "Desmond & Sophie"

// ThankYouSubject is the email subject for confirmations.
func ThankYouSubject(couple string) string {
	return "Your RSVP to " + signature(couple) + "'s wedding"
}

// ThankYouMessage returns the confirmation shown and sent after a response.
func ThankYouMessage(status guestbook.Status, couple string) string {
	sig := signature(couple)
	switch status {
	case guestbook.StatusAttending:
		return "Hello! We are thrilled to hear that you'll be attending our wedding lunch! " +
			"Your positive response has filled our hearts with joy, and we can't wait to celebrate this special day with you.\n\n" +
			"We look forward to sharing the joy with you on our big day!\n\n" +
			sig
	case guestbook.StatusNotAttending:
		return "Hello! Thank you for taking the time to RSVP to our wedding. " +
			"We appreciate your response, and while we'll miss having you with us on our special day, " +
			"we understand that sometimes other commitments come first.\n\n" +
			"Your thoughtfulness in responding means a lot to us. " +
			"We hope you have a wonderful day, and we'll be sure to celebrate together another time.\n\n" +
			"Wishing you all the best,\n" +
			sig
	default:
		return "Thanks for responding. Kindly let us know when you decide.\n\n" + sig
	}
}

func signature(couple string) string {
	if c := strings.TrimSpace(couple); c != "" {
		return c
	}
	return DefaultCouple
}
