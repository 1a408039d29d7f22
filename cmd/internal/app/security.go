package app

import (
	"errors"
	"fmt"
	"net/url"

	"wedding/cmd/internal/api"
	"wedding/cmd/security/token"
)

// ValidateSecurityConfig fails startup on configurations that would mint forgeable
// tokens or leak the admin session.
// Outside dev mode it also requires secure cookies and an https public base URL.
func ValidateSecurityConfig(cfg Config, tok token.Config, web api.Config) error {
	if err := tok.Validate(); err != nil {
		switch {
		case errors.Is(err, token.ErrSecretMissing):
			return fmt.Errorf("security policy: %s is required", token.SecretEnvKey)
		case errors.Is(err, token.ErrSecretTooShort):
			return fmt.Errorf("security policy: %s must be at least %d bytes", token.SecretEnvKey, token.MinSecretBytes)
		default:
			return fmt.Errorf("security policy: %w", err)
		}
	}
	if err := web.Admin.Validate(); err != nil {
		return fmt.Errorf("security policy: %w", err)
	}
	if cfg.DevMode {
		return nil
	}

	if !web.Admin.CookieSecure {
		return errors.New("security policy: WEDDING_ADMIN_COOKIE_SECURE must be true outside dev mode")
	}
	u, err := url.Parse(cfg.PublicBaseURL)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return errors.New("security policy: WEDDING_PUBLIC_BASE_URL must be an https URL outside dev mode")
	}
	return nil
}
