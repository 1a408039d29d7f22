package invite

import (
	"errors"
	"fmt"

	"wedding/cmd/identity"
)

var (
	ErrInvalidInput = fmt.Errorf("invite: %w", identity.ErrInvalidInput)
	// ErrInvalidPhone is the phone normalizer's failure, re-exported for callers.
	ErrInvalidPhone = identity.ErrInvalidPhone

	// ErrInvalidCode means the code is not 4 characters of [A-Z0-9].
	ErrInvalidCode = fmt.Errorf("invite: malformed code: %w", identity.ErrInvalidInput)
	// ErrNotFound covers an unknown code, an unassigned code and a slug mismatch alike.
	ErrNotFound = fmt.Errorf("invite: %w", identity.ErrNotFound)
	// ErrAlreadyUsed means the code has been consumed by an RSVP.
	ErrAlreadyUsed = fmt.Errorf("invite: already used: %w", identity.ErrNotActive)

	// ErrCodeSpaceExhausted is returned when MaxCodeAttempts candidates all collided.
	ErrCodeSpaceExhausted = errors.New("invite: code namespace exhausted")
)
