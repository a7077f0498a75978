package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("SHOPIFY_ADMIN_API_ACCESS_TOKEN", "shpat_123")
	t.Setenv("SHOPIFY_STORE_URL", "premier-party-cruises")
	t.Setenv("DATABASE_URL", "postgres://localhost/orders")
}

func TestValidate_ReportsAllMissingKeys(t *testing.T) {
	err := Config{}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingConfig))

	var mce *MissingConfigError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, []string{
		"STRIPE_SECRET_KEY",
		"SHOPIFY_ADMIN_API_ACCESS_TOKEN",
		"SHOPIFY_STORE_URL",
		"DATABASE_URL",
	}, mce.Keys)
}

func TestFromEnv_ReadsSecretsAndOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("RECONCILE_INTERVAL", "5m")
	t.Setenv("LOG_FORMAT", "TEXT")

	c, err := FromEnv(Default())
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, "2024-10", c.ShopifyAPIVersion)
	assert.Equal(t, 5*time.Minute, c.ReconcileInterval)
	assert.Equal(t, 72*time.Hour, c.ReconcileLookback)
	assert.Equal(t, "text", c.LogFormat)
}

func TestFromEnv_RejectsBadDuration(t *testing.T) {
	t.Setenv("RECONCILE_LOOKBACK", "three days")
	_, err := FromEnv(Default())
	assert.ErrorContains(t, err, "RECONCILE_LOOKBACK")
}

func TestLoad_SkipsMissingFilesAndKeepsEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SHOPIFY_API_VERSION=2025-01\nSTRIPE_SECRET_KEY=from_file\n"), 0o644))

	setRequired(t)
	// godotenv never overrides variables that are already set.
	t.Setenv("SHOPIFY_API_VERSION", "")
	require.NoError(t, os.Unsetenv("SHOPIFY_API_VERSION"))

	c, err := Load(filepath.Join(dir, "missing.env"), envFile)
	require.NoError(t, err)
	assert.Equal(t, "2025-01", c.ShopifyAPIVersion)
	assert.Equal(t, "sk_test_123", c.StripeSecretKey)
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(Config{LogFormat: "json", LogLevel: "info"}, &buf).Info("hello", "stage", "test")
	assert.Contains(t, buf.String(), `"stage":"test"`)

	buf.Reset()
	NewLogger(Config{LogFormat: "text", LogLevel: "warn"}, &buf).Info("dropped")
	assert.Empty(t, buf.String())
}
