package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/farcall/farcall/internal/ratelimit"
)

// Config carries the tool and collaborator settings.
type Config struct {
	// AllowInvalidUTF8 forwards non-UTF-8 service/header/arg1 bytes as raw
	// strings on the lazy path instead of treating them as unavailable.
	AllowInvalidUTF8 bool
	// MaxFrameBytes caps a single decoded frame.
	MaxFrameBytes int
	RateLimit     RateLimitConfig
}

type RateLimitConfig struct {
	Enabled  bool
	Tokens   int
	Interval time.Duration
	MaxKeys  int
}

func Default() Config {
	rl := ratelimit.DefaultConfig()
	return Config{
		MaxFrameBytes: 0xffff,
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Tokens:   rl.Tokens,
			Interval: rl.Interval,
			MaxKeys:  rl.MaxKeys,
		},
	}
}

type fileConfig struct {
	AllowInvalidUTF8 bool `toml:"allow_invalid_utf8"`
	MaxFrameBytes    int  `toml:"max_frame_bytes"`

	RateLimit struct {
		Enabled  bool   `toml:"enabled"`
		Tokens   int    `toml:"tokens"`
		Interval string `toml:"interval"`
		MaxKeys  int    `toml:"max_keys"`
	} `toml:"ratelimit"`
}

// Load reads path over the defaults. Absent keys keep their default value.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("allow_invalid_utf8") {
		cfg.AllowInvalidUTF8 = raw.AllowInvalidUTF8
	}
	if meta.IsDefined("max_frame_bytes") {
		if raw.MaxFrameBytes <= 0 {
			return Config{}, fmt.Errorf("max_frame_bytes must be positive, got %d", raw.MaxFrameBytes)
		}
		cfg.MaxFrameBytes = raw.MaxFrameBytes
	}
	if meta.IsDefined("ratelimit", "enabled") {
		cfg.RateLimit.Enabled = raw.RateLimit.Enabled
	}
	if meta.IsDefined("ratelimit", "tokens") {
		if raw.RateLimit.Tokens <= 0 {
			return Config{}, fmt.Errorf("ratelimit.tokens must be positive, got %d", raw.RateLimit.Tokens)
		}
		cfg.RateLimit.Tokens = raw.RateLimit.Tokens
	}
	if meta.IsDefined("ratelimit", "interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.RateLimit.Interval))
		if err != nil {
			return Config{}, fmt.Errorf("parse ratelimit.interval: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("ratelimit.interval must be positive, got %s", d)
		}
		cfg.RateLimit.Interval = d
	}
	if meta.IsDefined("ratelimit", "max_keys") {
		if raw.RateLimit.MaxKeys < 0 {
			return Config{}, fmt.Errorf("ratelimit.max_keys must not be negative, got %d", raw.RateLimit.MaxKeys)
		}
		cfg.RateLimit.MaxKeys = raw.RateLimit.MaxKeys
	}

	return cfg, nil
}

// LimiterConfig converts the rate limit section for the limiter.
func (c Config) LimiterConfig() ratelimit.Config {
	return ratelimit.Config{
		Tokens:   c.RateLimit.Tokens,
		Interval: c.RateLimit.Interval,
		MaxKeys:  c.RateLimit.MaxKeys,
	}
}
