package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrMissingJWTSecret is returned when no signing secret is configured.
	ErrMissingJWTSecret = errors.New("AUTH_JWT_SECRET is required")
	// ErrInvalidBcryptCost is returned for a cost bcrypt cannot hash with.
	ErrInvalidBcryptCost = errors.New("invalid AUTH_BCRYPT_COST")
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Cookie    CookieConfig
	RateLimit RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token and password parameters.
type AuthConfig struct {
	JWTSecret             string
	Issuer                string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// CookieConfig controls how the session token travels to the client.
type CookieConfig struct {
	Name     string
	Secure   bool
	SameSite string
}

// RateLimitConfig bounds login attempts per username and client address.
type RateLimitConfig struct {
	LoginMaxAttempts   int
	LoginWindowSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
// The signing secret has no default.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	secret := os.Getenv("AUTH_JWT_SECRET")
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingJWTSecret
	}

	bcryptCost := getEnvAsInt("AUTH_BCRYPT_COST", 12)
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: %d is outside %d..%d", ErrInvalidBcryptCost, bcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "session-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             secret,
			Issuer:                getEnv("AUTH_JWT_ISSUER", "session-service"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 15),
			BcryptCost:            bcryptCost,
		},
		Cookie: CookieConfig{
			Name:     getEnv("SESSION_COOKIE_NAME", "jwt"),
			Secure:   getEnvAsBool("SESSION_COOKIE_SECURE", false),
			SameSite: getEnv("SESSION_COOKIE_SAMESITE", "Lax"),
		},
		RateLimit: RateLimitConfig{
			LoginMaxAttempts:   getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
			LoginWindowSeconds: getEnvAsInt("LOGIN_WINDOW_SECONDS", 900),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the token lifetime, falling back to 15 minutes.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	if a.AccessTokenTTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// LoginWindow returns the limiter window.
func (r RateLimitConfig) LoginWindow() time.Duration {
	if r.LoginWindowSeconds <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(r.LoginWindowSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
