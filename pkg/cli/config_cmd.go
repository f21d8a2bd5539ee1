package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/getmockd/mcpchat/pkg/cli/internal/output"
	"github.com/getmockd/mcpchat/pkg/config"
)

// ConfigOutput is the output of the config command.
type ConfigOutput struct {
	Config   *config.Config    `json:"config" yaml:"config"`
	Endpoint config.Endpoint   `json:"endpoint" yaml:"endpoint"`
	Sources  map[string]string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

func newConfigCmd(opts *globalOptions) *cobra.Command {
	var showSources bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show effective configuration",
		Long:  "Show the effective configuration and the endpoint it resolves to.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			out := ConfigOutput{Config: cfg, Endpoint: cfg.Endpoint()}
			if showSources || opts.jsonOutput {
				out.Sources = cfg.Sources
			}
			if opts.jsonOutput {
				return output.JSON(cmd.OutOrStdout(), out)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(out); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVar(&showSources, "sources", false, "Show where each value came from")

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the config files that are read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := map[string]string{}
			explicit := opts.configFile
			if explicit == "" {
				explicit = config.ConfigFileFromEnv()
			}
			if explicit != "" {
				paths[config.SourceFile] = explicit
			} else {
				if p, err := config.FindGlobalConfig(); err == nil && p != "" {
					paths[config.SourceGlobal] = p
				} else {
					paths[config.SourceGlobal] = config.GlobalConfigPath() + " (not found)"
				}
				if p, err := config.FindLocalConfig(); err == nil && p != "" {
					paths[config.SourceLocal] = p
				} else {
					paths[config.SourceLocal] = config.LocalConfigFileNames[0] + " (not found)"
				}
			}

			if opts.jsonOutput {
				return output.JSON(cmd.OutOrStdout(), paths)
			}
			keys := make([]string, 0, len(paths))
			for k := range paths {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			w := output.Table(cmd.OutOrStdout())
			for _, k := range keys {
				fmt.Fprintf(w, "%s\t%s\n", k, paths[k])
			}
			return w.Flush()
		},
	})

	return cmd
}
