// Package rsvp is the one-time RSVP transition: a guest holding a valid capability token
// submits a single response, which consumes the invite code.
//
// States per invite code: unresolved, resolved-available, then resolved-used once a
// response commits. A code never returns to available.
package rsvp
