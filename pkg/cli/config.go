package cli

import (
	"fmt"
	"sort"

	"github.com/punisher1/nt/pkg/cli/internal/output"
	"github.com/punisher1/nt/pkg/cliconfig"
	"github.com/spf13/cobra"
)

func newConfigCommand(root *rootOptions) *cobra.Command {
	var showSources bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration nt would run with after merging defaults, config
files, NT_* environment variables and the global flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(nil)
			if err != nil {
				return err
			}
			if showSources {
				return printSources(cmd, cfg)
			}
			return output.YAML(cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().BoolVar(&showSources, "sources", false, "Show where each non-default value came from")

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the config files nt searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, name := range cliconfig.LocalConfigFileNames {
				fmt.Fprintln(w, name)
			}
			for _, p := range cliconfig.GetGlobalConfigSearchPaths() {
				fmt.Fprintln(w, p)
			}
			return nil
		},
	})
	return cmd
}

func printSources(cmd *cobra.Command, cfg *cliconfig.Config) error {
	keys := make([]string, 0, len(cfg.Sources))
	for k := range cfg.Sources {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := output.Table(cmd.OutOrStdout())
	fmt.Fprintln(tw, "KEY\tSOURCE")
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\n", k, cfg.Sources[k])
	}
	return tw.Flush()
}
