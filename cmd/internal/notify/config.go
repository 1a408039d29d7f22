package notify

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config selects and configures the delivery channels.
type Config struct {
	// DevMode logs SMS instead of failing when the gateway is not configured.
	DevMode bool `env:"WEDDING_DEV_MODE" envDefault:"true"`

	SMSAPIURL  string        `env:"WEDDING_SMS_API_URL"`
	SMSAPIKey  string        `env:"WEDDING_SMS_API_KEY"`
	SMSTimeout time.Duration `env:"WEDDING_SMS_TIMEOUT" envDefault:"10s"`

	MailerSendAPIKey string `env:"WEDDING_MAILERSEND_API_KEY"`
	MailFrom         string `env:"WEDDING_MAIL_FROM"`
	MailFromName     string `env:"WEDDING_MAIL_FROM_NAME" envDefault:"Desmond & Sophie"`
}

// LoadConfigFromEnv parses Config from the environment.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("notify: parse env: %w", err)
	}
	if cfg.SMSTimeout <= 0 {
		cfg.SMSTimeout = 10 * time.Second
	}
	return cfg, nil
}

// SMSConfigured reports whether the SMS gateway has both URL and key.
func (c Config) SMSConfigured() bool { return c.SMSAPIURL != "" && c.SMSAPIKey != "" }

// EmailConfigured reports whether MailerSend can be used.
func (c Config) EmailConfigured() bool { return c.MailerSendAPIKey != "" && c.MailFrom != "" }
