package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"bad layout", func(c *Config) { c.Layout = "diagonal" }, `layout "diagonal"`},
		{"zero capacity", func(c *Config) { c.Bridge.Capacity = 0 }, "bridge.capacity 0"},
		{"negative send timeout", func(c *Config) { c.Bridge.SendTimeout = -time.Second }, "bridge.sendTimeout"},
		{"zero peer queue", func(c *Config) { c.PeerQueue = 0 }, "peerQueue 0"},
		{"status out of range", func(c *Config) { c.HTTP.DefaultStatus = 700 }, "http.defaultStatus 700"},
		{"cert without key", func(c *Config) { c.TLS.Cert = "cert.pem" }, "tls.cert and tls.key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigFile_YAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".ntrc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
layout: vertical
language: zh-CN
log:
  level: debug
bridge:
  capacity: 50
  sendTimeout: 1s
http:
  responseTimeout: 5s
  defaultStatus: 204
tls:
  insecure: true
`), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, LayoutVertical, cfg.Layout)
	assert.Equal(t, "zh-CN", cfg.Language)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 50, cfg.Bridge.Capacity)
	assert.Equal(t, time.Second, cfg.Bridge.SendTimeout)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ResponseTimeout)
	assert.Equal(t, 204, cfg.HTTP.DefaultStatus)
	assert.True(t, cfg.TLS.Insecure)
}

func TestLoadConfigFile_TOML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
layout = "vertical"
peerQueue = 10

[udp]
idleTimeout = "30s"

[log]
format = "json"
maxBackups = 5
`), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, LayoutVertical, cfg.Layout)
	assert.Equal(t, 10, cfg.PeerQueue)
	assert.Equal(t, 30*time.Second, cfg.UDP.IdleTimeout)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Log.MaxBackups)
}

func TestLoadConfigFile_TOMLSyntaxError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("layout = \n"), 0o600))

	_, err := LoadConfigFile(path)
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, path, cerr.Path)
	assert.Positive(t, cerr.Line)
}

func TestLoadConfigFile_YAMLError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("layout: [unterminated\n"), 0o600))

	_, err := LoadConfigFile(path)
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Error(), path)
}

func TestMergeConfig(t *testing.T) {
	t.Parallel()

	target := NewDefault()
	MergeConfig(target, &Config{Layout: LayoutVertical, PeerQueue: 7}, SourceLocal)

	assert.Equal(t, LayoutVertical, target.Layout)
	assert.Equal(t, 7, target.PeerQueue)
	assert.Equal(t, DefaultBridgeCapacity, target.Bridge.Capacity)
	assert.Equal(t, SourceLocal, target.Sources["layout"])
	assert.NotContains(t, target.Sources, "bridge.capacity")

	MergeConfig(target, nil, SourceEnv)
	assert.Equal(t, LayoutVertical, target.Layout)
}

func TestLoadAll_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", dir)
	t.Setenv(EnvLayout, "")
	t.Setenv(EnvLang, "")
	t.Setenv(EnvLogFormat, "")
	t.Setenv(EnvLogFile, "")
	t.Setenv(EnvLogLevel, "warn")

	explicit := filepath.Join(dir, "nt.yaml")
	require.NoError(t, os.WriteFile(explicit, []byte("layout: vertical\nlog:\n  level: debug\n"), 0o600))

	cfg, err := LoadAll(explicit)
	require.NoError(t, err)

	assert.Equal(t, LayoutVertical, cfg.Layout)
	assert.Equal(t, SourceFile, cfg.Sources["layout"])
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, SourceEnv, cfg.Sources["log.level"])
}

func TestLoadAll_MissingExplicitFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := LoadAll(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
