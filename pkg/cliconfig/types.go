package cliconfig

import "time"

// Layout values.
const (
	LayoutHorizontal = "horizontal"
	LayoutVertical   = "vertical"
)

// Config represents the complete configuration for the nt CLI.
// Configuration values can come from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Local config file (.ntrc.yaml / .ntrc.toml in current directory)
// 4. Global config file (~/.config/nt/config.yaml)
// 5. Default values (lowest priority)
type Config struct {
	// Layout is "horizontal" (panes side by side) or "vertical".
	Layout string `yaml:"layout" toml:"layout"`

	// Language is a BCP 47 tag such as "en" or "zh-CN". Empty means detect
	// from the environment.
	Language string `yaml:"language" toml:"language"`

	Log    LogConfig    `yaml:"log" toml:"log"`
	Bridge BridgeConfig `yaml:"bridge" toml:"bridge"`

	// PeerQueue is the outbound queue depth per peer.
	PeerQueue int `yaml:"peerQueue" toml:"peerQueue"`

	HTTP HTTPConfig `yaml:"http" toml:"http"`
	UDP  UDPConfig  `yaml:"udp" toml:"udp"`
	TLS  TLSConfig  `yaml:"tls" toml:"tls"`

	// Sources tracks where each value came from (for debugging)
	Sources map[string]string `yaml:"-" toml:"-"`
}

// LogConfig configures the log sink.
type LogConfig struct {
	Level      string `yaml:"level" toml:"level"`
	Format     string `yaml:"format" toml:"format"`
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB" toml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups" toml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays" toml:"maxAgeDays"`
}

// BridgeConfig sizes the channels between a handler and the UI.
type BridgeConfig struct {
	Capacity    int           `yaml:"capacity" toml:"capacity"`
	SendTimeout time.Duration `yaml:"sendTimeout" toml:"sendTimeout"`
}

// HTTPConfig configures the HTTP servers.
type HTTPConfig struct {
	// ResponseTimeout is how long a request waits for a typed response
	// before the default one is sent.
	ResponseTimeout time.Duration `yaml:"responseTimeout" toml:"responseTimeout"`
	DefaultStatus   int           `yaml:"defaultStatus" toml:"defaultStatus"`
}

// UDPConfig configures the UDP server.
type UDPConfig struct {
	IdleTimeout time.Duration `yaml:"idleTimeout" toml:"idleTimeout"`
}

// TLSConfig names certificate material.
type TLSConfig struct {
	Cert     string `yaml:"cert" toml:"cert"`
	Key      string `yaml:"key" toml:"key"`
	CA       string `yaml:"ca" toml:"ca"`
	Insecure bool   `yaml:"insecure" toml:"insecure"`
}

// ConfigSource identifies where a config value originated.
const (
	SourceDefault = "default"
	SourceEnv     = "env"
	SourceGlobal  = "global"
	SourceLocal   = "local"
	SourceFile    = "file"
	SourceFlag    = "flag"
)
