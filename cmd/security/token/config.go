package token

import (
	"os"
	"strings"
	"time"
)

const (
	// SecretEnvKey is the env var name for the token signing secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	SecretEnvKey = "WEDDING_INVITE_TOKEN_SECRET"
	// TTLEnvKey is the env var name for the token lifetime.
	TTLEnvKey = "WEDDING_INVITE_TOKEN_TTL"

	// DefaultTTL matches the invite page's advertised link lifetime.
	DefaultTTL = 24 * time.Hour

	// MinSecretBytes is the minimum accepted secret length.
	MinSecretBytes = 16
)

// Config is the explicit signing configuration handed to NewSigner.
type Config struct {
	Secret []byte
	TTL    time.Duration
}

// LoadConfigFromEnv reads the signing configuration.
// It does not validate; NewSigner does, so a missing secret fails at startup.
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		Secret: []byte(strings.TrimSpace(os.Getenv(SecretEnvKey))),
		TTL:    DefaultTTL,
	}
	if raw := strings.TrimSpace(os.Getenv(TTLEnvKey)); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return Config{}, ErrInvalidTTL
		}
		cfg.TTL = d
	}
	return cfg, nil
}

// Validate checks the secret and TTL.
func (c Config) Validate() error {
	if len(c.Secret) == 0 {
		return ErrSecretMissing
	}
	if len(c.Secret) < MinSecretBytes {
		return ErrSecretTooShort
	}
	if c.TTL < 0 {
		return ErrInvalidTTL
	}
	return nil
}
