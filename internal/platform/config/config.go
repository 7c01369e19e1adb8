package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"schemagate/pkg/platform/validation"
)

// Config is the full runtime configuration, read once at startup.
type Config struct {
	Server     Server
	Database   DatabaseConfig
	Redis      RedisConfig
	Inference  InferenceConfig
	Auth       AuthConfig
	Extraction ExtractionConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	Environment    string
	LogLevel       string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	TrustedProxies []netip.Prefix
}

type DatabaseConfig struct {
	URL string
}

// RedisConfig enables the shared verification cache when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type InferenceConfig struct {
	URL         string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	PullOnStart bool
}

type AuthConfig struct {
	CacheTTL         time.Duration
	NegativeCacheTTL time.Duration
	StoreTimeout     time.Duration
	DevCredentials   []DevCredential
}

// DevCredential seeds the in-memory credential store when no database is configured.
type DevCredential struct {
	Key      string
	TenantID string
}

type ExtractionConfig struct {
	MaxInputChars int
}

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// FromEnv builds a Config from environment variables so main stays lean.
// Unset variables take their defaults; malformed values are reported together.
func FromEnv() (Config, error) {
	r := envReader{}

	cfg := Config{
		Server: Server{
			Addr:           r.str("SCHEMAGATE_ADDR", ":8080"),
			Environment:    r.str("ENVIRONMENT", EnvDevelopment),
			LogLevel:       r.str("LOG_LEVEL", "info"),
			RequestTimeout: r.duration("REQUEST_TIMEOUT", 150*time.Second),
			MaxBodyBytes:   int64(r.integer("MAX_BODY_BYTES", validation.DefaultMaxBodyBytes)),
			TrustedProxies: r.prefixes("TRUSTED_PROXIES"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     r.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: r.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  r.duration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  r.duration("REDIS_READ_TIMEOUT", time.Second),
			WriteTimeout: r.duration("REDIS_WRITE_TIMEOUT", time.Second),
		},
		Inference: InferenceConfig{
			URL:         strings.TrimRight(r.str("INFERENCE_URL", "http://ollama:11434"), "/"),
			Model:       r.str("MODEL_NAME", "qwen2.5:0.5b"),
			Timeout:     r.duration("INFERENCE_TIMEOUT", 120*time.Second),
			MaxTokens:   r.integer("INFERENCE_MAX_TOKENS", 1024),
			Temperature: r.float("INFERENCE_TEMPERATURE", 0.1),
			PullOnStart: r.boolean("INFERENCE_PULL_ON_START", false),
		},
		Auth: AuthConfig{
			CacheTTL:         r.duration("CACHE_TTL", 60*time.Second),
			NegativeCacheTTL: r.duration("NEGATIVE_CACHE_TTL", 10*time.Second),
			StoreTimeout:     r.duration("STORE_TIMEOUT", 3*time.Second),
			DevCredentials:   r.devCredentials("DEV_CREDENTIALS"),
		},
		Extraction: ExtractionConfig{
			MaxInputChars: r.integer("MAX_INPUT_CHARS", validation.DefaultMaxInputChars),
		},
	}

	r.check(cfg.Inference.Timeout > 0, "INFERENCE_TIMEOUT must be positive")
	r.check(cfg.Inference.MaxTokens > 0, "INFERENCE_MAX_TOKENS must be positive")
	r.check(cfg.Inference.Temperature >= 0 && cfg.Inference.Temperature <= 2, "INFERENCE_TEMPERATURE must be within [0, 2]")
	r.check(cfg.Auth.CacheTTL > 0, "CACHE_TTL must be positive")
	r.check(cfg.Auth.NegativeCacheTTL >= 0, "NEGATIVE_CACHE_TTL must not be negative")
	r.check(cfg.Auth.NegativeCacheTTL <= cfg.Auth.CacheTTL, "NEGATIVE_CACHE_TTL must not exceed CACHE_TTL")
	r.check(cfg.Auth.StoreTimeout > 0, "STORE_TIMEOUT must be positive")
	r.check(cfg.Extraction.MaxInputChars > 0, "MAX_INPUT_CHARS must be positive")
	r.check(cfg.Server.MaxBodyBytes > 0, "MAX_BODY_BYTES must be positive")
	r.check(cfg.Database.URL != "" || len(cfg.Auth.DevCredentials) > 0,
		"either DATABASE_URL or DEV_CREDENTIALS must be set")
	r.check(!(cfg.Server.Environment == EnvProduction && len(cfg.Auth.DevCredentials) > 0),
		"DEV_CREDENTIALS is not allowed in production")

	if err := errors.Join(r.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsProduction reports whether the server runs with production settings.
func (s Server) IsProduction() bool {
	return s.Environment == EnvProduction
}

type envReader struct {
	errs []error
}

func (r *envReader) check(ok bool, msg string) {
	if !ok {
		r.errs = append(r.errs, errors.New(msg))
	}
}

func (r *envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (r *envReader) integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *envReader) float(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (r *envReader) boolean(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (r *envReader) prefixes(key string) []netip.Prefix {
	var out []netip.Prefix
	for _, raw := range strings.Split(os.Getenv(key), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		p, err := netip.ParsePrefix(raw)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		out = append(out, p)
	}
	return out
}

// devCredentials parses "key=tenant,key=tenant".
func (r *envReader) devCredentials(key string) []DevCredential {
	var out []DevCredential
	for _, entry := range strings.Split(os.Getenv(key), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		k, tenant, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(k) == "" || strings.TrimSpace(tenant) == "" {
			r.errs = append(r.errs, fmt.Errorf("%s: entries must look like key=tenant", key))
			continue
		}
		out = append(out, DevCredential{Key: strings.TrimSpace(k), TenantID: strings.TrimSpace(tenant)})
	}
	return out
}
