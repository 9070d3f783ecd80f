package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Config is the relay configuration, built once at startup.
type Config struct {
	Port int

	MinuteLimit int64
	DailyLimit  int64

	// RedisURL selects the shared store; empty selects the in-memory one.
	RedisURL        string
	RedisTimeout    time.Duration
	KeyPrefix       string
	ClientHeader    string
	JanitorInterval time.Duration

	OpenAIKey   string
	OpenAIModel string

	LogLevel  zerolog.Level
	LogFormat string
}

// Defaults mirror the documented environment defaults.
func Defaults() Config {
	return Config{
		Port:            8787,
		MinuteLimit:     5,
		DailyLimit:      50,
		RedisTimeout:    500 * time.Millisecond,
		KeyPrefix:       "cm",
		ClientHeader:    "X-Cringe-Client",
		JanitorInterval: time.Minute,
		OpenAIModel:     "gpt-4o-mini",
		LogLevel:        zerolog.InfoLevel,
		LogFormat:       "json",
	}
}

// Load reads .env files (./.env then ../.env, both optional, never
// overriding variables already set) and builds a validated Config from the
// process environment.
func Load() (*Config, error) {
	for _, path := range []string{".env", "../.env"} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, rejecting invalid values.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Defaults()
	p := parser{lookup: lookup}

	p.integer("PORT", func(v int64) { cfg.Port = int(v) })
	p.integer("MINUTE_LIMIT", func(v int64) { cfg.MinuteLimit = v })
	p.integer("DAILY_LIMIT", func(v int64) { cfg.DailyLimit = v })
	p.str("REDIS_URL", func(v string) { cfg.RedisURL = v })
	p.duration("REDIS_TIMEOUT", func(v time.Duration) { cfg.RedisTimeout = v })
	p.str("RATE_LIMIT_PREFIX", func(v string) { cfg.KeyPrefix = v })
	p.str("CLIENT_ID_HEADER", func(v string) { cfg.ClientHeader = v })
	p.duration("JANITOR_INTERVAL", func(v time.Duration) { cfg.JanitorInterval = v })
	p.str("OPENAI_API_KEY", func(v string) { cfg.OpenAIKey = v })
	p.str("OPENAI_MODEL", func(v string) { cfg.OpenAIModel = v })
	p.str("LOG_FORMAT", func(v string) { cfg.LogFormat = strings.ToLower(v) })
	p.str("LOG_LEVEL", func(v string) {
		lvl, err := zerolog.ParseLevel(strings.ToLower(v))
		if err != nil {
			p.fail("LOG_LEVEL", v, err)
			return
		}
		cfg.LogLevel = lvl
	})

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and cross-field rules.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.MinuteLimit <= 0 {
		errs = append(errs, fmt.Errorf("MINUTE_LIMIT must be positive, got %d", c.MinuteLimit))
	}
	if c.DailyLimit <= 0 {
		errs = append(errs, fmt.Errorf("DAILY_LIMIT must be positive, got %d", c.DailyLimit))
	}
	if c.RedisURL != "" {
		if _, err := redis.ParseURL(c.RedisURL); err != nil {
			errs = append(errs, fmt.Errorf("REDIS_URL is invalid: %w", err))
		}
	}
	if c.RedisTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REDIS_TIMEOUT must be positive, got %s", c.RedisTimeout))
	}
	if c.KeyPrefix == "" {
		errs = append(errs, errors.New("RATE_LIMIT_PREFIX must not be empty"))
	}
	if c.ClientHeader == "" {
		errs = append(errs, errors.New("CLIENT_ID_HEADER must not be empty"))
	}
	if c.JanitorInterval <= 0 {
		errs = append(errs, fmt.Errorf("JANITOR_INTERVAL must be positive, got %s", c.JanitorInterval))
	}
	if c.OpenAIModel == "" {
		errs = append(errs, errors.New("OPENAI_MODEL must not be empty"))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// UsesRedis reports whether the shared store is configured.
func (c *Config) UsesRedis() bool {
	return c.RedisURL != ""
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) get(key string) (string, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *parser) fail(key, value string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (p *parser) str(key string, set func(string)) {
	if v, ok := p.get(key); ok {
		set(v)
	}
}

func (p *parser) integer(key string, set func(int64)) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	set(n)
}

func (p *parser) duration(key string, set func(time.Duration)) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	set(d)
}
