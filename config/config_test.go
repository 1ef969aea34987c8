package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "config.json", cfg.Files.ConfigStore)
	assert.Equal(t, "activation_log.json", cfg.Files.ActivationLog)
	assert.Equal(t, "https://dealerapp.siriusxm.com", cfg.Vendor.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Vendor.Timeout)
	assert.Equal(t, "/authService/100000002/login", cfg.Endpoints.Login)
	assert.NotEmpty(t, cfg.Credentials.AppKey)
	assert.NotEmpty(t, cfg.Credentials.AppSecret)
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
vendor:
  base_url: "http://localhost:9999"
  timeout_seconds: 3
files:
  config_store: "my-config.json"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999", cfg.Vendor.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Vendor.Timeout)
	assert.Equal(t, "my-config.json", cfg.Files.ConfigStore)
	// Anything unset falls back to the embedded defaults.
	assert.Equal(t, "activation_log.json", cfg.Files.ActivationLog)
	assert.Equal(t, "/services/DealerAppService7/VersionControl", cfg.Endpoints.VersionControl)
}

func TestLoad_CredentialEnvOverride(t *testing.T) {
	t.Setenv("SIRIUSXM_APP_KEY", "env-key")
	t.Setenv("SIRIUSXM_APP_SECRET", "env-secret")

	cfg := Default()
	assert.Equal(t, "env-key", cfg.Credentials.AppKey)
	assert.Equal(t, "env-secret", cfg.Credentials.AppSecret)
}
