package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
)

const argon2Version = argon2.Version

var b64 = base64.RawStdEncoding

// Validate checks the length policy, counting runes.
func (c Config) Validate(password string) error {
	n := utf8.RuneCountInString(password)
	if n < c.MinLength {
		return ErrPasswordTooShort
	}
	if c.MaxLength > 0 && n > c.MaxLength {
		return ErrPasswordTooLong
	}
	return nil
}

// Hash returns the PHC-encoded Argon2id hash of password.
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}

	salt := make([]byte, c.Params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, c.Params.Iterations, c.Params.MemoryKiB, c.Params.Parallelism, c.Params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Version, c.Params.MemoryKiB, c.Params.Iterations, c.Params.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded.
// (false, nil) is a mismatch; ErrInvalidHash means the stored hash is unusable.
func (c Config) Verify(encoded, password string) (bool, error) {
	h, err := decode(encoded)
	if err != nil {
		return false, err
	}
	if !h.within(c.Params) {
		return false, ErrInvalidHash
	}

	got := argon2.IDKey([]byte(password), h.salt, h.params.Iterations, h.params.MemoryKiB, h.params.Parallelism, h.params.KeyLength)
	return subtle.ConstantTimeCompare(got, h.key) == 1, nil
}

type phc struct {
	params Params
	salt   []byte
	key    []byte
}

// within refuses hashes far more expensive than our own settings so that a tampered
// configuration cannot pin the CPU on every login.
func (h phc) within(limits Params) bool {
	return h.params.MemoryKiB <= limits.MemoryKiB*2 &&
		h.params.Iterations <= limits.Iterations*2 &&
		h.params.Parallelism <= limits.Parallelism*2 &&
		h.params.SaltLength >= 8 && h.params.SaltLength <= 64 &&
		h.params.KeyLength >= 16 && h.params.KeyLength <= 128
}

func decode(encoded string) (phc, error) {
	parts := strings.Split(strings.TrimSpace(encoded), "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return phc{}, ErrInvalidHash
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2Version) {
		return phc{}, ErrInvalidHash
	}

	var mem, iter, lanes uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iter, &lanes); err != nil {
		return phc{}, ErrInvalidHash
	}
	if mem == 0 || iter == 0 || lanes == 0 || lanes > 255 {
		return phc{}, ErrInvalidHash
	}

	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return phc{}, ErrInvalidHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return phc{}, ErrInvalidHash
	}

	return phc{
		params: Params{
			MemoryKiB:   mem,
			Iterations:  iter,
			Parallelism: uint8(lanes),      // #nosec G115 -- bounded to [1..255] above.
			SaltLength:  uint32(len(salt)), // #nosec G115 -- base64 segment length.
			KeyLength:   uint32(len(key)),  // #nosec G115 -- base64 segment length.
		},
		salt: salt,
		key:  key,
	}, nil
}
