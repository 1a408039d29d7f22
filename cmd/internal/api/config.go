package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// MinSessionSecretBytes is the shortest accepted admin session signing key.
const MinSessionSecretBytes = 32

var (
	ErrAdminCredentialMissing = errors.New("admin: WEDDING_ADMIN_PASSWORD_HASH or WEDDING_ADMIN_PASSWORD must be set")
	ErrSessionSecretTooShort  = fmt.Errorf("admin: WEDDING_ADMIN_SESSION_SECRET must be at least %d bytes", MinSessionSecretBytes)
)

// AdminConfig controls the admin login and session cookie.
type AdminConfig struct {
	// PasswordHash is a PHC argon2id string. It wins over Password when both are set.
	PasswordHash  string        `env:"WEDDING_ADMIN_PASSWORD_HASH"`
	Password      string        `env:"WEDDING_ADMIN_PASSWORD"`
	SessionSecret string        `env:"WEDDING_ADMIN_SESSION_SECRET"`
	SessionTTL    time.Duration `env:"WEDDING_ADMIN_SESSION_TTL" envDefault:"12h"`
	CookieName    string        `env:"WEDDING_ADMIN_COOKIE_NAME" envDefault:"wedding_admin"`
	CookieSecure  bool          `env:"WEDDING_ADMIN_COOKIE_SECURE" envDefault:"true"`
	CookiePath    string        `env:"WEDDING_ADMIN_COOKIE_PATH" envDefault:"/"`
	CookieDomain  string        `env:"WEDDING_ADMIN_COOKIE_DOMAIN"`

	CookieSameSite http.SameSite
}

// Config is the HTTP surface configuration.
type Config struct {
	Admin AdminConfig
	// BaseURL prefixes invite links in admin responses and exports. The server sets it
	// from its public base URL.
	BaseURL      string
	MaxBodyBytes int64 `env:"WEDDING_API_MAX_BODY_BYTES" envDefault:"65536"`
}

// LoadConfigFromEnv reads WEDDING_ADMIN_* and the body size limit.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("api config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 64 << 10
	}
	a := &c.Admin
	a.PasswordHash = strings.TrimSpace(a.PasswordHash)
	if a.SessionTTL <= 0 {
		a.SessionTTL = 12 * time.Hour
	}
	if strings.TrimSpace(a.CookieName) == "" {
		a.CookieName = "wedding_admin"
	}
	if a.CookiePath == "" {
		a.CookiePath = "/"
	}
	if a.CookieSameSite == 0 {
		a.CookieSameSite = http.SameSiteStrictMode
	}
}

// Validate fails when the admin surface cannot authenticate anyone safely.
func (a AdminConfig) Validate() error {
	if a.PasswordHash == "" && a.Password == "" {
		return ErrAdminCredentialMissing
	}
	if len(a.SessionSecret) < MinSessionSecretBytes {
		return ErrSessionSecretTooShort
	}
	return nil
}
