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
	t.Chdir(t.TempDir())

	cfg, err := Load("venue")
	require.NoError(t, err)

	assert.Equal(t, "nats://127.0.0.1:4222", cfg.Bus.URL)
	assert.Equal(t, 10, cfg.Bus.ConnectRetries)
	assert.Equal(t, 5*time.Second, cfg.Bus.RetryDelay)
	assert.Equal(t, time.Second, cfg.Match.SnapshotInterval)
	assert.Equal(t, 5, cfg.Match.DepthLevels)
	assert.Equal(t, ":8000", cfg.OrderService.ListenAddr)
	assert.Equal(t, ":8001", cfg.SocketService.ListenAddr)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	contents := []byte(`
bus:
  url: nats://broker:4222
  retry_delay: 2s
match:
  snapshot_interval: 250ms
  order_service_url: http://orders:8000
socket_service:
  listen_addr: ":9001"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "venue.yaml"), contents, 0o644))

	cfg, err := Load("venue")
	require.NoError(t, err)

	assert.Equal(t, "nats://broker:4222", cfg.Bus.URL)
	assert.Equal(t, 2*time.Second, cfg.Bus.RetryDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.Match.SnapshotInterval)
	assert.Equal(t, "http://orders:8000", cfg.Match.OrderServiceURL)
	assert.Equal(t, ":9001", cfg.SocketService.ListenAddr)
	// Untouched keys keep their defaults.
	assert.Equal(t, 10, cfg.Bus.ConnectRetries)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VENUE_BUS_URL", "nats://env:4222")
	t.Setenv("VENUE_ORDER_SERVICE_DSN", "user:pass@tcp(db:3306)/venue?parseTime=true")

	cfg, err := Load("venue")
	require.NoError(t, err)

	assert.Equal(t, "nats://env:4222", cfg.Bus.URL)
	assert.Equal(t, "user:pass@tcp(db:3306)/venue?parseTime=true", cfg.OrderService.DSN)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "venue.yaml"), []byte("bus: ["), 0o644))

	_, err := Load("venue")
	assert.Error(t, err)
}
