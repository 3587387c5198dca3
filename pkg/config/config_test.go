package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseConfigDefaults(t *testing.T) {
	cfg := NewBaseConfig("greenhouse", "source")

	assert.Equal(t, "greenhouse", cfg.Name)
	assert.Equal(t, "source", cfg.Type)
	assert.Equal(t, 100, cfg.Performance.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Request)
	assert.Equal(t, 10, cfg.Reliability.RateLimitPerSec)
	assert.True(t, cfg.Reliability.CircuitBreaker)
	assert.Equal(t, "api_key", cfg.Security.AuthType)
}

func TestValidateFillsZeroValues(t *testing.T) {
	cfg := &BaseConfig{Name: "greenhouse", Type: "source"}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.Performance.BatchSize)
	assert.Equal(t, 1000, cfg.Performance.BufferSize)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Request)
}

func TestValidateRejectsMissingIdentity(t *testing.T) {
	assert.Error(t, (&BaseConfig{Type: "source"}).Validate())
	assert.Error(t, (&BaseConfig{Name: "greenhouse"}).Validate())
}

func TestValidateRejectsNegativeValues(t *testing.T) {
	cfg := NewBaseConfig("greenhouse", "source")
	cfg.Reliability.RetryAttempts = -1
	assert.Error(t, cfg.Validate())

	cfg = NewBaseConfig("greenhouse", "source")
	cfg.Reliability.RateLimitPerSec = -5
	assert.Error(t, cfg.Validate())
}

func TestLoadSubstitutesEnvVars(t *testing.T) {
	t.Setenv("TEST_HARVEST_KEY", "secret-from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
name: greenhouse
type: source
security:
  auth_type: api_key
  credentials:
    api_key: ${TEST_HARVEST_KEY}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	var cfg BaseConfig
	require.NoError(t, Load(path, &cfg))

	assert.Equal(t, "greenhouse", cfg.Name)
	assert.Equal(t, "secret-from-env", cfg.Security.Credentials["api_key"])
}

func TestLoadMissingFile(t *testing.T) {
	var cfg BaseConfig
	assert.Error(t, Load(filepath.Join(t.TempDir(), "absent.yaml"), &cfg))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := NewBaseConfig("greenhouse", "source")
	cfg.Performance.BatchSize = 250
	require.NoError(t, Save(path, cfg))

	var got BaseConfig
	require.NoError(t, Load(path, &got))
	assert.Equal(t, 250, got.Performance.BatchSize)
	assert.Equal(t, cfg.Name, got.Name)
}
