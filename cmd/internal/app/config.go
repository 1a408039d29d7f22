package app

import "time"

// Config contains the server runtime configuration loaded from WEDDING_* variables.
// Feature packages (token, notify, api, password) load their own settings.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int

	// Store selection: DatabaseURL wins, then SQLitePath, else in-memory.
	DatabaseURL    string
	DBSchema       string
	DBMaxConns     int32
	DBMinConns     int32
	MigrateOnStart bool
	SQLitePath     string

	// If true, /readyz returns 503 unless a persistent store is configured and reachable.
	ReadinessRequireDB bool

	// PublicBaseURL prefixes invite links in admin views and exports.
	// Empty means derive it from HTTPAddr.
	PublicBaseURL string

	// DevMode relaxes production checks (insecure cookies allowed, SMS logged).
	DevMode bool

	FeedAllowedOrigins []string
	FeedSendQueue      int

	NATSURL     string
	CoupleNames string
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	cfg := Config{
		HTTPAddr:  EnvString("WEDDING_HTTP_ADDR", "0.0.0.0:3000"),
		LogLevel:  EnvString("WEDDING_LOG_LEVEL", "info"),
		LogFormat: EnvString("WEDDING_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("WEDDING_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("WEDDING_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("WEDDING_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("WEDDING_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   EnvDuration("WEDDING_HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    EnvInt("WEDDING_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:    EnvString("WEDDING_DATABASE_URL", ""),
		DBSchema:       EnvString("WEDDING_DB_SCHEMA", "wedding"),
		DBMaxConns:     EnvInt32("WEDDING_DB_MAX_CONNS", 10),
		DBMinConns:     EnvInt32("WEDDING_DB_MIN_CONNS", 0),
		MigrateOnStart: EnvBool("WEDDING_DB_MIGRATE", true),
		SQLitePath:     EnvString("WEDDING_SQLITE_PATH", ""),

		ReadinessRequireDB: EnvBool("WEDDING_READINESS_REQUIRE_DB", false),

		PublicBaseURL: EnvString("WEDDING_PUBLIC_BASE_URL", ""),
		DevMode:       EnvBool("WEDDING_DEV_MODE", true),

		FeedAllowedOrigins: EnvList("WEDDING_FEED_ALLOWED_ORIGINS", nil),
		FeedSendQueue:      EnvInt("WEDDING_FEED_SEND_QUEUE", 256),

		NATSURL:     EnvString("WEDDING_NATS_URL", ""),
		CoupleNames: EnvString("WEDDING_COUPLE_NAMES", "Desmond & Sophie"),
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = runtimeBaseURL(cfg.HTTPAddr)
	}
	return cfg
}
