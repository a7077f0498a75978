package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingConfig is wrapped by MissingConfigError.
var ErrMissingConfig = errors.New("missing required configuration")

// MissingConfigError lists every required variable that was not set.
type MissingConfigError struct{ Keys []string }

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingConfig, strings.Join(e.Keys, ", "))
}

func (e *MissingConfigError) Unwrap() error { return ErrMissingConfig }

// Config holds everything the order service reads from the environment.
type Config struct {
	Port string

	StripeSecretKey    string
	ShopifyAccessToken string
	ShopifyStoreURL    string
	ShopifyAPIVersion  string
	DatabaseURL        string

	// JWTSecret enables bearer-token verification on the order endpoint when set.
	JWTSecret string

	LogFormat string
	LogLevel  string

	ReconcileInterval time.Duration
	ReconcileLookback time.Duration
}

func Default() Config {
	return Config{
		Port:              "8080",
		ShopifyAPIVersion: "2024-10",
		LogFormat:         "json",
		LogLevel:          "info",
		ReconcileInterval: 15 * time.Minute,
		ReconcileLookback: 72 * time.Hour,
	}
}

// Load reads the given env files (missing files are skipped) and then the
// process environment. Variables already present in the environment win.
func Load(paths ...string) (Config, error) {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", p, err)
		}
	}
	return FromEnv(Default())
}

func FromEnv(c Config) (Config, error) {
	if v := os.Getenv("APP_PORT"); v != "" {
		c.Port = v
	}
	c.StripeSecretKey = strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY"))
	c.ShopifyAccessToken = strings.TrimSpace(os.Getenv("SHOPIFY_ADMIN_API_ACCESS_TOKEN"))
	c.ShopifyStoreURL = strings.TrimSpace(os.Getenv("SHOPIFY_STORE_URL"))
	c.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	c.JWTSecret = os.Getenv("SUPABASE_JWT_SECRET")
	if v := os.Getenv("SHOPIFY_API_VERSION"); v != "" {
		c.ShopifyAPIVersion = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("RECONCILE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return c, fmt.Errorf("invalid RECONCILE_INTERVAL: %w", err)
		}
		c.ReconcileInterval = d
	}
	if v := os.Getenv("RECONCILE_LOOKBACK"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return c, fmt.Errorf("invalid RECONCILE_LOOKBACK: %w", err)
		}
		c.ReconcileLookback = d
	}
	return c, nil
}

// Validate reports every missing secret at once.
func (c Config) Validate() error {
	var missing []string
	if c.StripeSecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if c.ShopifyAccessToken == "" {
		missing = append(missing, "SHOPIFY_ADMIN_API_ACCESS_TOKEN")
	}
	if c.ShopifyStoreURL == "" {
		missing = append(missing, "SHOPIFY_STORE_URL")
	}
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return &MissingConfigError{Keys: missing}
	}
	return nil
}

// NewLogger builds the process logger. Unknown formats fall back to JSON.
func NewLogger(c Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
