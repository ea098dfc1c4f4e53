package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderaudit/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "local", cfg.Source.Provider)
	assert.Equal(t, "OrderTemplate", cfg.Source.NameFilter)
	assert.Equal(t, 50.0, cfg.Audit.AlertFailureThreshold)
	assert.Equal(t, 4, cfg.Audit.Workers)
	assert.Contains(t, cfg.Normalizer.IDAliases, "order number")
	assert.Contains(t, cfg.Normalizer.StatusAliases, "status")
	assert.Empty(t, cfg.Auth.Clients)
	assert.Equal(t, 5*time.Second, cfg.Watch.Debounce)
	assert.False(t, cfg.Webhook.Enabled())
	assert.Equal(t, 3, cfg.Webhook.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Webhook.Timeout)
}

func TestLoad_Webhook(t *testing.T) {
	t.Setenv("ORDERAUDIT_WEBHOOK_SUMMARY_URL", "https://hooks.example.com/summary")
	t.Setenv("ORDERAUDIT_WEBHOOK_MAX_ATTEMPTS", "0")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.Webhook.Enabled())
	assert.Equal(t, "https://hooks.example.com/summary", cfg.Webhook.SummaryURL)
	assert.Equal(t, 1, cfg.Webhook.MaxAttempts)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ORDERAUDIT_DB_DRIVER", "Postgres")
	t.Setenv("ORDERAUDIT_AUDIT_WORKERS", "0")
	t.Setenv("ORDERAUDIT_AUDIT_DEFAULT_FOLDER_IDS", " folder-a, ,folder-b ")
	t.Setenv("ORDERAUDIT_AUTH_CLIENTS", "rpa-bot:$2a$10$abcdefghijklmnopqrstuv")
	t.Setenv("ORDERAUDIT_EMAIL_RECIPIENTS", "ops@example.com,qa@example.com")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 1, cfg.Audit.Workers)
	assert.Equal(t, []string{"folder-a", "folder-b"}, cfg.Audit.DefaultFolderIDs)
	assert.Equal(t, "$2a$10$abcdefghijklmnopqrstuv", cfg.Auth.Clients["rpa-bot"])
	assert.Equal(t, []string{"ops@example.com", "qa@example.com"}, cfg.Email.Recipients)
}

func TestLoad_PortFallback(t *testing.T) {
	t.Setenv("PORT", "9090")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Port)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("ORDERAUDIT_DB_DRIVER", "mysql")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_RejectsMalformedClient(t *testing.T) {
	t.Setenv("ORDERAUDIT_AUTH_CLIENTS", "no-hash-here")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_DSN(t *testing.T) {
	db := config.DBConfig{User: "u", Password: "p", Host: "h", Port: 5432, Name: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", db.DSN())
}
