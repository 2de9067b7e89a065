package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
gateway:
  base_url: http://localhost:8000/api
stream:
  url: ws://localhost:8000/ws
`

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8090, cfg.View.Port)
	assert.Equal(t, 30*time.Second, cfg.Stream.KeepaliveInterval)
	assert.Equal(t, 60*time.Second, cfg.Stream.DeadPeerTimeout)
	assert.Equal(t, 3*time.Second, cfg.Stream.ReconnectDelay)
	assert.Equal(t, time.Second, cfg.Reconcile.Signals)
	assert.Equal(t, 500*time.Millisecond, cfg.Reconcile.Positions)
	assert.Equal(t, 1500*time.Millisecond, cfg.Reconcile.Stats)
	assert.Equal(t, 20, cfg.Gateway.SignalLimit)
	assert.Equal(t, "none", cfg.Audit.Backend)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, minimalConfig+`
view:
  port: 9999
reconcile:
  signals: 2s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.View.Port)
	assert.Equal(t, 2*time.Second, cfg.Reconcile.Signals)
}

func TestValidateRejectsMissingEndpoints(t *testing.T) {
	path := writeConfig(t, `
gateway:
  base_url: http://localhost:8000/api
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "stream.url")

	path = writeConfig(t, `
stream:
  url: ws://localhost:8000/ws
`)
	_, err = Load(path)
	assert.ErrorContains(t, err, "gateway.base_url")
}

func TestValidateAuditBackend(t *testing.T) {
	path := writeConfig(t, minimalConfig+`
audit:
  backend: postgres
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "audit.backend")

	path = writeConfig(t, minimalConfig+`
audit:
  backend: kafka
`)
	_, err = Load(path)
	assert.ErrorContains(t, err, "audit.kafka.brokers")

	path = writeConfig(t, minimalConfig+`
audit:
  backend: clickhouse
`)
	_, err = Load(path)
	assert.ErrorContains(t, err, "audit.clickhouse.host")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	t.Setenv("GATEWAY_BASE_URL", "http://gw:9000/api")
	t.Setenv("STREAM_URL", "ws://gw:9000/ws")
	t.Setenv("VIEW_PORT", "8181")
	t.Setenv("AUDIT_BACKEND", "none")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "http://gw:9000/api", cfg.Gateway.BaseURL)
	assert.Equal(t, "ws://gw:9000/ws", cfg.Stream.URL)
	assert.Equal(t, 8181, cfg.View.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}
