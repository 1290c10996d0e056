// Package config loads service configuration from the environment, with an
// optional TOML overlay for risk weights.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
)

// EnvProduction is the APP_ENV value that forbids test mode
const EnvProduction = "production"

// Config is the full service configuration
type Config struct {
	Env      string
	Port     string
	LogLevel string
	TestMode bool

	MongoURI      string
	MongoDatabase string
	RedisAddr     string

	Risk      RiskConfig
	RateLimit RateLimitConfig
	Breaker   BreakerConfig
	Retry     RetryConfig
	Audit     AuditConfig
	Auth      AuthConfig
	AI        *AIConfig
}

// RiskConfig holds the env weights and the optional overlay file
type RiskConfig struct {
	Weights     model.RiskWeights
	WeightsFile string
}

// RateLimitConfig configures admission control
type RateLimitConfig struct {
	PerWindow     int
	Window        time.Duration
	SweepInterval time.Duration
	Backend       string // memory | redis
}

// BreakerConfig configures the generator circuit breaker
type BreakerConfig struct {
	Threshold int
	Cooldown  time.Duration
}

// RetryConfig configures generator retries
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// AuditConfig selects where generation outcomes are recorded
type AuditConfig struct {
	Store      string // mongo | sqlite
	SQLitePath string
}

// AuthConfig holds staff credentials and the token secret
type AuthConfig struct {
	JWTSecret     string `json:"-"`
	StaffUsername string
	StaffPassword string `json:"-"`
}

// Load reads configuration from the process environment
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads configuration through lookup, which has the shape of
// os.LookupEnv.
func LoadFrom(lookup func(string) (string, bool)) (*Config, error) {
	env := &envReader{lookup: lookup}

	cfg := &Config{
		Env:      env.String("APP_ENV", "development"),
		Port:     env.String("PORT", "8080"),
		LogLevel: env.String("LOG_LEVEL", "info"),
		TestMode: env.Bool("TEST_MODE", false),

		MongoURI:      env.String("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: env.String("MONGO_DATABASE", "learnerrisk"),
		RedisAddr:     strings.TrimPrefix(env.String("REDIS_URI", "localhost:6379"), "redis://"),

		Risk: RiskConfig{
			Weights:     weightsFromEnv(env),
			WeightsFile: env.String("RISK_WEIGHTS_FILE", ""),
		},
		RateLimit: RateLimitConfig{
			PerWindow:     env.Int("RATE_LIMIT_PER_MINUTE", 5),
			Window:        env.Seconds("RATE_LIMIT_WINDOW_SECONDS", 60),
			SweepInterval: env.Seconds("RATE_LIMIT_SWEEP_SECONDS", 300),
			Backend:       strings.ToLower(env.String("RATE_LIMIT_BACKEND", "memory")),
		},
		Breaker: BreakerConfig{
			Threshold: env.Int("CIRCUIT_BREAKER_THRESHOLD", 3),
			Cooldown:  env.Seconds("CIRCUIT_BREAKER_COOLDOWN_SECONDS", 30),
		},
		Retry: RetryConfig{
			MaxAttempts: env.Int("RETRY_MAX_ATTEMPTS", 3),
			BaseDelay:   env.Millis("RETRY_BASE_DELAY_MS", 1000),
			MaxDelay:    env.Millis("RETRY_MAX_DELAY_MS", 30000),
		},
		Audit: AuditConfig{
			Store:      strings.ToLower(env.String("AUDIT_STORE", "mongo")),
			SQLitePath: env.String("SQLITE_PATH", "outcomes.db"),
		},
		Auth: AuthConfig{
			JWTSecret:     env.String("JWT_SECRET", "dev-secret-change-me"),
			StaffUsername: env.String("STAFF_USERNAME", "staff"),
			StaffPassword: env.String("STAFF_PASSWORD", "staff"),
		},
		AI: aiConfigFrom(env),
	}

	if err := errors.Join(env.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	var errs []error
	if c.TestMode && strings.EqualFold(c.Env, EnvProduction) {
		errs = append(errs, errors.New("TEST_MODE cannot be enabled when APP_ENV=production"))
	}
	if err := ValidateWeights(c.Risk.Weights); err != nil {
		errs = append(errs, err)
	}
	if c.RateLimit.PerWindow < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be at least 1, got %d", c.RateLimit.PerWindow))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW_SECONDS must be positive"))
	}
	if c.RateLimit.Backend != "memory" && c.RateLimit.Backend != "redis" {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND must be memory or redis, got %q", c.RateLimit.Backend))
	}
	if c.Breaker.Threshold < 1 {
		errs = append(errs, fmt.Errorf("CIRCUIT_BREAKER_THRESHOLD must be at least 1, got %d", c.Breaker.Threshold))
	}
	if c.Breaker.Cooldown <= 0 {
		errs = append(errs, errors.New("CIRCUIT_BREAKER_COOLDOWN_SECONDS must be positive"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.Retry.MaxAttempts))
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		errs = append(errs, errors.New("RETRY_MAX_DELAY_MS must not be below RETRY_BASE_DELAY_MS"))
	}
	if c.Audit.Store != "mongo" && c.Audit.Store != "sqlite" {
		errs = append(errs, fmt.Errorf("AUDIT_STORE must be mongo or sqlite, got %q", c.Audit.Store))
	}
	if c.AI != nil {
		if err := c.AI.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

func weightsFromEnv(env *envReader) model.RiskWeights {
	def := model.DefaultRiskWeights()
	return model.RiskWeights{
		Completion: env.Float("RISK_WEIGHT_COMPLETION", def.Completion),
		Quiz:       env.Float("RISK_WEIGHT_QUIZ", def.Quiz),
		Missed:     env.Float("RISK_WEIGHT_MISSED", def.Missed),
		Login:      env.Float("RISK_WEIGHT_LOGIN", def.Login),
	}
}

// envReader reads typed values, collecting parse errors instead of silently
// falling back to defaults.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) String(key, defaultValue string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return defaultValue
}

func (e *envReader) Int(key string, defaultValue int) int {
	v := e.String(key, "")
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return defaultValue
	}
	return n
}

func (e *envReader) Float(key string, defaultValue float64) float64 {
	v := e.String(key, "")
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a number", key, v))
		return defaultValue
	}
	return f
}

func (e *envReader) Bool(key string, defaultValue bool) bool {
	v := e.String(key, "")
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return defaultValue
	}
	return b
}

func (e *envReader) Seconds(key string, defaultValue int) time.Duration {
	return time.Duration(e.Int(key, defaultValue)) * time.Second
}

func (e *envReader) Millis(key string, defaultValue int) time.Duration {
	return time.Duration(e.Int(key, defaultValue)) * time.Millisecond
}
