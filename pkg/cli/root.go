package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// BuildInfo carries the values injected at build time.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	build BuildInfo

	configPath string
	vertical   bool
	plain      bool
	lang       string
	logLevel   string
	logFormat  string
	logFile    string
}

// NewRootCommand builds the full command tree. Each call returns an
// independent tree with its own flag state.
func NewRootCommand(build BuildInfo) *cobra.Command {
	opts := &rootOptions{build: build}

	cmd := &cobra.Command{
		Use:   "nt",
		Short: "nt is an interactive network protocol tester",
		Long: `nt runs a TCP, UDP, WebSocket, HTTP/1.1, HTTP/2 or HTTP/3 server or client
and shows the traffic it sends and receives side by side.

Configuration can be provided via flags, environment variables (NT_*), a local
.ntrc.yaml/.ntrc.toml, or <user config dir>/nt/config.yaml.`,
		SilenceUsage:  true,
		SilenceErrors: true, // We handle errors in Execute()
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.vertical, "vertical", "v", false, "Stack the send and receive panes vertically")
	pf.BoolVar(&opts.plain, "plain", false, "Line mode: print traffic to stdout and send stdin lines")
	pf.StringVar(&opts.configPath, "config", "", "Config file (default: ./.ntrc.yaml, then <user config dir>/nt/config.yaml)")
	pf.StringVar(&opts.lang, "lang", "", "UI language (en, zh-CN)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format (text, json)")
	pf.StringVar(&opts.logFile, "log-file", "", "Log file written while the terminal UI is active")

	for _, pc := range protocolCommands {
		cmd.AddCommand(newProtocolCommand(opts, pc))
	}
	cmd.AddCommand(newVersionCommand(opts), newConfigCommand(opts))

	return cmd
}

// Execute runs the command tree and exits non-zero on failure.
// This is called by main.main().
func Execute(build BuildInfo) {
	if err := NewRootCommand(build).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
