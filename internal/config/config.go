// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// GlobalConfig is the top-level static configuration. Maps to the
// `aes67-agent:` root key in YAML.
type GlobalConfig struct {
	Node      NodeConfig      `mapstructure:"node"`
	Control   ControlConfig   `mapstructure:"control"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

// NodeConfig contains node identification settings.
type NodeConfig struct {
	Hostname string            `mapstructure:"hostname"` // Empty = os.Hostname()
	Tags     map[string]string `mapstructure:"tags"`
}

// ControlConfig contains local control plane settings.
type ControlConfig struct {
	Socket  string `mapstructure:"socket"`
	PIDFile string `mapstructure:"pid_file"`
}

// DiscoveryConfig contains the SAP listener settings.
type DiscoveryConfig struct {
	MulticastAddr string `mapstructure:"multicast_addr"` // admin or global SAP group
	BindInterface string `mapstructure:"bind_interface"` // empty = default interface
	Port          int    `mapstructure:"port"`
	StreamTimeout string `mapstructure:"stream_timeout"` // e.g. "300s"
	SweepInterval string `mapstructure:"sweep_interval"` // e.g. "60s"
	ReadBuffer    int    `mapstructure:"read_buffer"`    // socket buffer bytes, 0 = kernel default
}

// StreamTimeoutDuration returns the parsed stream timeout.
func (d DiscoveryConfig) StreamTimeoutDuration() time.Duration {
	t, _ := time.ParseDuration(d.StreamTimeout)
	return t
}

// SweepIntervalDuration returns the parsed sweep interval.
func (d DiscoveryConfig) SweepIntervalDuration() time.Duration {
	t, _ := time.ParseDuration(d.SweepInterval)
	return t
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level"`  // debug / info / warn / error
	Format  string           `mapstructure:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
	Loki LokiOutputConfig `mapstructure:"loki"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// LokiOutputConfig configures Loki log output.
type LokiOutputConfig struct {
	Enabled      bool              `mapstructure:"enabled"`
	Endpoint     string            `mapstructure:"endpoint"`
	Labels       map[string]string `mapstructure:"labels"`
	BatchSize    int               `mapstructure:"batch_size"`
	BatchTimeout string            `mapstructure:"batch_timeout"`
}

// configRoot is the top-level wrapper matching the YAML structure
// `aes67-agent: ...`.
type configRoot struct {
	Agent GlobalConfig `mapstructure:"aes67-agent"`
}

// Load loads configuration from file. The YAML file uses `aes67-agent:`
// as the root key; env vars override via the AES67_AGENT_ prefix (e.g.
// AES67_AGENT_LOG_LEVEL).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// No explicit env prefix — the `aes67-agent.` key prefix maps to
	// AES67_AGENT_ via the key replacer.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Agent

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration. All keys carry
// the "aes67-agent." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("aes67-agent.control.socket", "/var/run/aes67-agent.sock")
	v.SetDefault("aes67-agent.control.pid_file", "/var/run/aes67-agent.pid")

	v.SetDefault("aes67-agent.discovery.multicast_addr", "239.255.255.255")
	v.SetDefault("aes67-agent.discovery.port", 9875)
	v.SetDefault("aes67-agent.discovery.stream_timeout", "300s")
	v.SetDefault("aes67-agent.discovery.sweep_interval", "60s")

	v.SetDefault("aes67-agent.metrics.enabled", true)
	v.SetDefault("aes67-agent.metrics.listen", ":9091")
	v.SetDefault("aes67-agent.metrics.path", "/metrics")

	v.SetDefault("aes67-agent.log.level", "info")
	v.SetDefault("aes67-agent.log.format", "json")
	v.SetDefault("aes67-agent.log.outputs.file.enabled", false)
	v.SetDefault("aes67-agent.log.outputs.file.path", "/var/log/aes67-agent/aes67-agent.log")
	v.SetDefault("aes67-agent.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("aes67-agent.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("aes67-agent.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("aes67-agent.log.outputs.file.rotation.compress", true)
}

// ValidateAndApplyDefaults validates configuration and applies runtime
// defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}

	// ── Node hostname auto-detect ──
	if cfg.Node.Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to get hostname: %w", err)
		}
		cfg.Node.Hostname = hostname
	}

	// ── Discovery validation ──
	group := net.ParseIP(cfg.Discovery.MulticastAddr)
	if group == nil || group.To4() == nil || !group.IsMulticast() {
		return fmt.Errorf("invalid discovery.multicast_addr: %s (must be an IPv4 multicast group)",
			cfg.Discovery.MulticastAddr)
	}
	if cfg.Discovery.Port <= 0 || cfg.Discovery.Port > 65535 {
		return fmt.Errorf("invalid discovery.port: %d", cfg.Discovery.Port)
	}
	if _, err := time.ParseDuration(cfg.Discovery.StreamTimeout); err != nil {
		return fmt.Errorf("invalid discovery.stream_timeout: %w", err)
	}
	if _, err := time.ParseDuration(cfg.Discovery.SweepInterval); err != nil {
		return fmt.Errorf("invalid discovery.sweep_interval: %w", err)
	}

	return nil
}
