package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const separator = "."

// Strict decoding rejects non-zero trailing bits, so no two encodings decode to the same MAC.
var b64 = base64.RawURLEncoding.Strict()

// Payload is the signed content of a capability token.
type Payload struct {
	GuestID string `json:"gid"`
	Code    string `json:"code"`
	Expires int64  `json:"exp"`
}

// ExpiresAt returns the expiry as a time.
func (p Payload) ExpiresAt() time.Time { return time.Unix(p.Expires, 0).UTC() }

// Signer signs and verifies capability tokens with one server-held secret.
// It is immutable after construction and safe for concurrent use.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures the Signer.
type Option func(*Signer)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSigner validates cfg and returns a Signer. A missing secret is a configuration
// error and must stop the process at startup.
func NewSigner(cfg Config, opts ...Option) (*Signer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	s := &Signer{
		secret: append([]byte(nil), cfg.Secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s, nil
}

// TTL returns the default token lifetime.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Sign issues a token for guestID+code valid for the configured TTL.
func (s *Signer) Sign(guestID, code string) (string, error) {
	return s.SignWithTTL(guestID, code, s.ttl)
}

// SignWithTTL issues a token with an explicit lifetime. A negative ttl yields a token
// that is already expired.
func (s *Signer) SignWithTTL(guestID, code string, ttl time.Duration) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", ErrSecretMissing
	}
	guestID = strings.TrimSpace(guestID)
	code = strings.TrimSpace(code)
	if guestID == "" || code == "" {
		return "", fmt.Errorf("sign: %w", ErrInvalidToken)
	}

	raw, err := json.Marshal(Payload{
		GuestID: guestID,
		Code:    code,
		Expires: s.now().Add(ttl).Unix(),
	})
	if err != nil {
		return "", err
	}

	data := b64.EncodeToString(raw)
	return data + separator + b64.EncodeToString(s.mac(data)), nil
}

// Verify checks the signature and expiry and returns the payload.
// Every failure returns an error matching ErrInvalidToken.
func (s *Signer) Verify(tok string) (Payload, error) {
	if s == nil || len(s.secret) == 0 {
		return Payload{}, ErrSecretMissing
	}

	data, sig, ok := strings.Cut(strings.TrimSpace(tok), separator)
	if !ok || data == "" || sig == "" || strings.Contains(sig, separator) {
		return Payload{}, ErrInvalidToken
	}

	got, err := b64.DecodeString(sig)
	if err != nil {
		return Payload{}, ErrInvalidToken
	}
	if !hmac.Equal(got, s.mac(data)) {
		return Payload{}, ErrInvalidToken
	}

	raw, err := b64.DecodeString(data)
	if err != nil {
		return Payload{}, ErrInvalidToken
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, ErrInvalidToken
	}
	if p.GuestID == "" || p.Code == "" {
		return Payload{}, ErrInvalidToken
	}
	if p.Expires < s.now().Unix() {
		return Payload{}, fmt.Errorf("%w: %w", ErrInvalidToken, ErrExpiredToken)
	}
	return p, nil
}

func (s *Signer) mac(data string) []byte {
	m := hmac.New(sha256.New, s.secret)
	_, _ = m.Write([]byte(data))
	return m.Sum(nil)
}
