package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 64*1024, cfg.RDP.BufferSize)
	assert.Equal(t, "none", cfg.Security.EncryptionMethod)
	assert.False(t, cfg.Security.StrictMACValidation)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: "9090"
rdp:
  bufferSize: 1024
  timeout: 5s
security:
  encryptionMethod: fips
  secureChecksum: true
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	// Unset fields keep their defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 1024, cfg.RDP.BufferSize)
	assert.Equal(t, 5*time.Second, cfg.RDP.Timeout)
	assert.Equal(t, "fips", cfg.Security.EncryptionMethod)
	assert.True(t, cfg.Security.SecureChecksum)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("RDP_ENCRYPTION_METHOD", "standard")
	t.Setenv("RDP_STRICT_MAC", "true")
	t.Setenv("RDP_BUFFER_SIZE", "2048")
	t.Setenv("RDP_TIMEOUT", "2s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "standard", cfg.Security.EncryptionMethod)
	assert.True(t, cfg.Security.StrictMACValidation)
	assert.Equal(t, 2048, cfg.RDP.BufferSize)
	assert.Equal(t, 2*time.Second, cfg.RDP.Timeout)
}

func TestEnvOverridesIgnoreMalformedValues(t *testing.T) {
	t.Setenv("RDP_BUFFER_SIZE", "not-a-number")
	t.Setenv("RDP_STRICT_MAC", "not-a-bool")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 64*1024, cfg.RDP.BufferSize)
	assert.False(t, cfg.Security.StrictMACValidation)
}

func TestValidateRejectsUnknownEncryptionMethod(t *testing.T) {
	t.Setenv("RDP_ENCRYPTION_METHOD", "rot13")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid encryption method")
}

func TestValidateRejectsNonPositiveBufferSize(t *testing.T) {
	t.Setenv("RDP_BUFFER_SIZE", "-1")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid buffer size")
}
