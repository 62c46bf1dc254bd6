package cliconfig

import "os"

// Environment variable names
const (
	EnvLang      = "NT_LANG"
	EnvLogLevel  = "NT_LOG_LEVEL"
	EnvLogFormat = "NT_LOG_FORMAT"
	EnvLogFile   = "NT_LOG_FILE"
	EnvLayout    = "NT_LAYOUT"
	EnvConfig    = "NT_CONFIG"
)

// LoadEnvConfig loads configuration from environment variables.
// It only sets values that are present in the environment.
func LoadEnvConfig(cfg *Config) {
	MergeConfig(cfg, &Config{
		Language: os.Getenv(EnvLang),
		Layout:   os.Getenv(EnvLayout),
		Log: LogConfig{
			Level:  os.Getenv(EnvLogLevel),
			Format: os.Getenv(EnvLogFormat),
			File:   os.Getenv(EnvLogFile),
		},
	}, SourceEnv)
}
