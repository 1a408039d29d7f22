package invite

import (
	"net/url"
	"strconv"
)

// InviteLink is the personalized path sent to a guest: /invite/{slug}?code=C&n=N.
func InviteLink(slug, code string, maxAttendees int) string {
	q := url.Values{}
	q.Set("code", code)
	q.Set("n", strconv.Itoa(maxAttendees))
	return "/invite/" + url.PathEscape(slug) + "?" + q.Encode()
}

// RSVPLink is the path of the RSVP form for a capability token.
func RSVPLink(token string) string {
	return "/rsvp?token=" + url.QueryEscape(token)
}
