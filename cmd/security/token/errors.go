package token

import "errors"

// Public, stable errors for callers.
var (
	ErrSecretMissing  = errors.New("invite token secret missing")
	ErrSecretTooShort = errors.New("invite token secret too short")
	ErrInvalidTTL     = errors.New("invite token ttl invalid")

	// ErrInvalidToken covers every verification failure: shape, encoding, signature, expiry.
	ErrInvalidToken = errors.New("invite token invalid")
	// ErrExpiredToken is returned wrapped together with ErrInvalidToken.
	ErrExpiredToken = errors.New("invite token expired")
)
