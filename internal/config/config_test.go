package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DSN", "catering:secret@tcp(db:3306)/catering")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, 72*time.Hour, cfg.JWT.TTL)
	require.True(t, cfg.Orders.AllowOversell)
	require.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
	require.Equal(t, "db:3306", cfg.Database.Addr())
	require.Empty(t, cfg.Redis.Address)

	rate, err := cfg.Orders.Rate()
	require.NoError(t, err)
	require.Nil(t, rate)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ORDERS_ALLOW_OVERSELL", "false")
	t.Setenv("ORDERS_CASHBACK_RATE", "0.02")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REDIS_ADDRESS", "redis:6379")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "9090", cfg.Server.Port)
	require.False(t, cfg.Orders.AllowOversell)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	require.Equal(t, "redis:6379", cfg.Redis.Address)

	rate, err := cfg.Orders.Rate()
	require.NoError(t, err)
	require.True(t, rate.Equal(decimal.RequireFromString("0.02")))
}

func TestLoadZeroCashbackRate(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ORDERS_CASHBACK_RATE", "0")

	cfg, err := Load()
	require.NoError(t, err)

	rate, err := cfg.Orders.Rate()
	require.NoError(t, err)
	require.NotNil(t, rate)
	require.True(t, rate.IsZero())
}

func TestLoadConfigFile(t *testing.T) {
	setRequiredEnv(t)
	dir := t.TempDir()
	yaml := "server:\n  port: \"7070\"\nratelimit:\n  guest_burst: 9\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "7070", cfg.Server.Port)
	require.Equal(t, 9, cfg.RateLimit.GuestBurst)
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("ORDERS_CASHBACK_RATE", "1.5")

	_, err := Load()
	require.Error(t, err)
	require.ErrorContains(t, err, "database.dsn is required")
	require.ErrorContains(t, err, "jwt.secret")
	require.ErrorContains(t, err, "orders.cashback_rate")
}
