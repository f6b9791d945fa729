package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
aes67-agent:
  node:
    hostname: "test-node"
  control:
    socket: "/tmp/test.sock"
    pid_file: "/tmp/test.pid"
  discovery:
    multicast_addr: "224.2.127.254"
    port: 9875
    stream_timeout: "120s"
    sweep_interval: "15s"
  metrics:
    enabled: true
    listen: "0.0.0.0:9091"
    path: "/metrics"
  log:
    level: "debug"
    format: "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-node", cfg.Node.Hostname)
	assert.Equal(t, "/tmp/test.sock", cfg.Control.Socket)
	assert.Equal(t, "/tmp/test.pid", cfg.Control.PIDFile)
	assert.Equal(t, "224.2.127.254", cfg.Discovery.MulticastAddr)
	assert.Equal(t, 9875, cfg.Discovery.Port)
	assert.Equal(t, 120*time.Second, cfg.Discovery.StreamTimeoutDuration())
	assert.Equal(t, 15*time.Second, cfg.Discovery.SweepIntervalDuration())
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
aes67-agent:
  node:
    hostname: "defaults-node"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/run/aes67-agent.sock", cfg.Control.Socket)
	assert.Equal(t, "239.255.255.255", cfg.Discovery.MulticastAddr)
	assert.Equal(t, 9875, cfg.Discovery.Port)
	assert.Equal(t, 300*time.Second, cfg.Discovery.StreamTimeoutDuration())
	assert.Equal(t, 60*time.Second, cfg.Discovery.SweepIntervalDuration())
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9091", cfg.Metrics.Listen)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Log.Outputs.File.Enabled)
}

func TestLoadHostnameAutoDetect(t *testing.T) {
	path := writeConfig(t, `
aes67-agent:
  log:
    level: "info"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	hostname, _ := os.Hostname()
	assert.Equal(t, hostname, cfg.Node.Hostname)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			"bad log level",
			"aes67-agent:\n  log:\n    level: \"verbose\"\n",
		},
		{
			"bad log format",
			"aes67-agent:\n  log:\n    format: \"xml\"\n",
		},
		{
			"unicast discovery address",
			"aes67-agent:\n  discovery:\n    multicast_addr: \"192.168.1.1\"\n",
		},
		{
			"ipv6 discovery address",
			"aes67-agent:\n  discovery:\n    multicast_addr: \"ff02::1\"\n",
		},
		{
			"port out of range",
			"aes67-agent:\n  discovery:\n    port: 70000\n",
		},
		{
			"bad stream timeout",
			"aes67-agent:\n  discovery:\n    stream_timeout: \"five minutes\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}
