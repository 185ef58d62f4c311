package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env   string
	Port  int
	DBURL string

	DBMaxConns int32
	// postgres | memory
	UsersStore string

	JWTSecret     string
	TokenMode     string
	JWTExpiresIn  time.Duration
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration

	BcryptCost   int
	CookieSecure bool

	CORSAllowedOrigins []string
	MaxBodyBytes       int64

	AdminEmail    string
	AdminPassword string
	AdminName     string

	OTelEnabled     bool
	OTelEndpoint    string
	OTelServiceName string
}

func Load() Config {
	// a missing .env is fine, real deployments use the process environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: could not read .env: %v", err)
	}

	return Config{
		Env:        getEnv("APP_ENV", "dev"),
		Port:       getEnvInt("PORT", 8080),
		DBURL:      buildDBURL(),
		DBMaxConns: int32(getEnvInt("DB_MAX_CONNS", 5)),
		UsersStore: getEnv("USERS_STORE", "postgres"),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenMode:     getEnv("TOKEN_MODE", "dual"),
		JWTExpiresIn:  getEnvDuration("JWT_EXPIRES_IN", 24*time.Hour),
		JWTAccessTTL:  getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
		JWTRefreshTTL: getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),

		BcryptCost:   getEnvInt("BCRYPT_COST", 10),
		CookieSecure: getEnvBool("COOKIE_SECURE", true),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     getEnv("ADMIN_NAME", "System Admin"),

		OTelEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelServiceName: getEnv("OTEL_SERVICE_NAME", "accounthub"),
	}
}

// Validate reports configuration that must stop the process at startup.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not defined in environment variables")
	}

	switch c.TokenMode {
	case "dual", "single":
	default:
		return fmt.Errorf("TOKEN_MODE must be dual or single, got %q", c.TokenMode)
	}

	switch c.UsersStore {
	case "postgres", "memory":
	default:
		return fmt.Errorf("USERS_STORE must be postgres or memory, got %q", c.UsersStore)
	}

	return nil
}

func (c Config) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}

func buildDBURL() string {
	if url := os.Getenv("DB_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "accounthub")
	pass := getEnv("DB_PASSWORD", "accounthub")
	name := getEnv("DB_NAME", "accounthub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			log.Printf("config: %s=%q is not an integer, using %d", key, v, fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("config: %s=%q is not a boolean, using %v", key, v, fallback)
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := ParseTTL(v)
		if err != nil {
			log.Printf("config: %s: %v, using %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseTTL accepts Go durations ("15m", "168h") plus a day suffix ("1d", "7d").
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", s)
	}
	return d, nil
}
