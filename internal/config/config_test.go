package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "DATA_DIR", "LOG_DIR", "LOG_LEVEL", "DEBUG_MODE",
		"AUTH_SECRET_KEY", "TOKEN_TTL", "SIGNUP_PATH", "DRAFT_TTL",
		"DRAFT_SWEEP_SCHEDULE", "MAX_FIELD_ENTRIES", "SUBMISSION_JOURNAL", "DEV_TOKENS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/signup", cfg.SignupPath)
	assert.Equal(t, 30*time.Minute, cfg.DraftTTL)
	assert.Equal(t, 50, cfg.MaxFieldEntries)
	assert.True(t, cfg.DebugMode)
	assert.False(t, cfg.DevTokens)
	assert.False(t, cfg.SubmissionJournal)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DEBUG_MODE", "no")
	t.Setenv("DRAFT_TTL", "5m")
	t.Setenv("MAX_FIELD_ENTRIES", "3")
	t.Setenv("SUBMISSION_JOURNAL", "YES")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DEV_TOKENS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.DebugMode)
	assert.Equal(t, 5*time.Minute, cfg.DraftTTL)
	assert.Equal(t, 3, cfg.MaxFieldEntries)
	assert.True(t, cfg.SubmissionJournal)
	assert.True(t, cfg.DevTokens)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_FIELD_ENTRIES", "many")
	t.Setenv("TOKEN_TTL", "forever")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.MaxFieldEntries)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "localvoice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "7000"
signup_path: /register
draft_ttl: 10m
max_field_entries: 8
`), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MAX_FIELD_ENTRIES", "12")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "/register", cfg.SignupPath)
	assert.Equal(t, 10*time.Minute, cfg.DraftTTL)
	assert.Equal(t, 12, cfg.MaxFieldEntries)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.SignupPath = "signup"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.MaxFieldEntries = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.DraftTTL = 0
	assert.Error(t, cfg.Validate())

	assert.NoError(t, Default().Validate())
}

func TestCurrentConfigIsCopied(t *testing.T) {
	cfg := Default()
	cfg.Port = "1234"
	SetCurrentConfig(cfg)
	cfg.Port = "changed"

	got := GetCurrentConfig()
	assert.Equal(t, "1234", got.Port)
	got.Port = "mutated"
	assert.Equal(t, "1234", GetCurrentConfig().Port)
}
