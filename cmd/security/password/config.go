package password

import (
	"fmt"
	"runtime"

	"github.com/caarlos0/env/v11"
)

// Params controls Argon2id hashing cost. MemoryKiB is in KiB as argon2.IDKey expects.
type Params struct {
	MemoryKiB   uint32 `env:"WEDDING_ARGON2_MEMORY_KIB" envDefault:"65536"`
	Iterations  uint32 `env:"WEDDING_ARGON2_ITERATIONS" envDefault:"3"`
	Parallelism uint8  `env:"WEDDING_ARGON2_PARALLELISM"`
	SaltLength  uint32 `env:"WEDDING_ARGON2_SALT_LEN" envDefault:"16"`
	KeyLength   uint32 `env:"WEDDING_ARGON2_KEY_LEN" envDefault:"32"`
}

// Config is the single configuration surface for this package.
type Config struct {
	Params    Params
	MinLength int `env:"WEDDING_ADMIN_PASSWORD_MIN_LEN" envDefault:"10"`
	MaxLength int `env:"WEDDING_ADMIN_PASSWORD_MAX_LEN" envDefault:"256"`
}

// DefaultConfig returns the baseline cost used for one interactive admin login.
func DefaultConfig() Config {
	return Config{
		Params: Params{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: defaultParallelism(),
			SaltLength:  16,
			KeyLength:   32,
		},
		MinLength: 10,
		MaxLength: 256,
	}
}

// FromEnv loads config from WEDDING_ARGON2_* and WEDDING_ADMIN_PASSWORD_* variables and
// rejects values outside safe ranges.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("password config: %w", err)
	}
	if cfg.Params.Parallelism == 0 {
		cfg.Params.Parallelism = defaultParallelism()
	}
	if err := cfg.check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) check() error {
	p := c.Params
	switch {
	case p.MemoryKiB < 8*1024 || p.MemoryKiB > 1024*1024:
		return fmt.Errorf("password config: memory_kib out of range [8192..1048576]")
	case p.Iterations < 1 || p.Iterations > 20:
		return fmt.Errorf("password config: iterations out of range [1..20]")
	case p.SaltLength < 8 || p.SaltLength > 64:
		return fmt.Errorf("password config: salt_len out of range [8..64]")
	case p.KeyLength < 16 || p.KeyLength > 64:
		return fmt.Errorf("password config: key_len out of range [16..64]")
	case c.MinLength < 1 || c.MinLength > c.MaxLength:
		return fmt.Errorf("password config: min_len(%d) must be in [1..max_len(%d)]", c.MinLength, c.MaxLength)
	}
	return nil
}

// CPU-aware lanes, clamped to [1..4] to keep container usage predictable.
func defaultParallelism() uint8 {
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	if n > 4 {
		n = 4
	}
	return uint8(n) // #nosec G115 -- clamped to [1..4] above.
}
