package guestbook

import (
	"fmt"

	"wedding/cmd/identity"
)

// Store errors. Each wraps an identity kind so HTTP mapping can stay generic.
var (
	ErrInvalidInput     = fmt.Errorf("guestbook: %w", identity.ErrInvalidInput)
	ErrNotFound         = fmt.Errorf("guestbook: record %w", identity.ErrNotFound)
	ErrCodeTaken        = fmt.Errorf("guestbook: invite code %w", identity.ErrConflict)
	ErrAlreadySubmitted = fmt.Errorf("guestbook: response %w", identity.ErrNotActive)
)
