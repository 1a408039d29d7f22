package password

import "errors"

// Errors returned by Validate, Hash and Verify. Callers match them with errors.Is.
var (
	// ErrPasswordTooShort and ErrPasswordTooLong report a length policy violation
	// when hashing a new admin password.
	ErrPasswordTooShort = errors.New("password: shorter than the configured minimum")
	ErrPasswordTooLong  = errors.New("password: longer than the configured maximum")

	// ErrInvalidHash means the stored WEDDING_ADMIN_PASSWORD_HASH is malformed or uses
	// parameters outside the accepted range.
	ErrInvalidHash = errors.New("password: unusable argon2id hash")
)
