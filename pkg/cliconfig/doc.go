// Package cliconfig provides configuration types and loading for the nt CLI.
//
// It implements a layered configuration system with the following precedence
// (highest to lowest):
//
//  1. Command-line flags
//  2. Environment variables (NT_* prefix)
//  3. Local config file (.ntrc.yaml, .ntrc.yml or .ntrc.toml in the current
//     directory), or the file named by --config
//  4. Global config file (<UserConfigDir>/nt/config.{yaml,yml,toml})
//  5. Default values
//
// YAML files are decoded with gopkg.in/yaml.v3 and TOML files with
// github.com/BurntSushi/toml. Durations accept Go duration strings ("200ms").
// The Sources map records which layer supplied each value.
package cliconfig
