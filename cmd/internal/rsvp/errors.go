package rsvp

import (
	"fmt"

	"wedding/cmd/identity"
)

var (
	ErrInvalidInput = fmt.Errorf("rsvp: %w", identity.ErrInvalidInput)

	// ErrInvalidLink covers a bad, expired or mismatched token and a vanished guest or code.
	ErrInvalidLink = fmt.Errorf("rsvp: invalid link: %w", identity.ErrNotFound)
	// ErrInvalidStatus is an RSVP status outside the closed set.
	ErrInvalidStatus = fmt.Errorf("rsvp: invalid status: %w", identity.ErrInvalidInput)
	// ErrInvalidPhone means the phone failed normalization; nothing was written.
	ErrInvalidPhone = fmt.Errorf("rsvp: %w", identity.ErrInvalidPhone)
	// ErrAlreadySubmitted means the code already carries a response.
	ErrAlreadySubmitted = fmt.Errorf("rsvp: already submitted: %w", identity.ErrNotActive)
)
