package identity

import (
	"time"

	"wedding/cmd/identity/ids"
)

// NewULID returns a new ULID (26-char string) for guests, invite codes and responses.
func NewULID(now time.Time) (string, error) {
	return ids.NewULID(now)
}
