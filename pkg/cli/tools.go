package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/mcpchat/pkg/cli/internal/output"
)

func newToolsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List and call the backend's tools",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the tools the backend advertises",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			tools, err := s.chat.ListTools(cmd.Context())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return output.JSON(cmd.OutOrStdout(), tools)
			}

			w := output.Table(cmd.OutOrStdout())
			fmt.Fprintln(w, "NAME\tDESCRIPTION")
			for _, t := range tools {
				fmt.Fprintf(w, "%s\t%s\n", t.Name, t.Description)
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "call <name> [arguments-json]",
		Short:   "Call a tool",
		Long:    "Call a tool. Arguments are checked against the tool's input schema before the call is sent.",
		Example: `  mcpchat tools call echo '{"text":"hello"}'`,
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parseJSONArg(args[1:])
			if err != nil {
				return err
			}
			var arguments map[string]any
			if raw != nil {
				if err := json.Unmarshal(raw, &arguments); err != nil {
					return fmt.Errorf("arguments must be a JSON object: %w", err)
				}
			}

			s, err := opts.openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.chat.ListTools(cmd.Context()); err != nil {
				return err
			}
			res, err := s.chat.CallTool(cmd.Context(), args[0], arguments)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				if err := output.JSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), res.Text())
			}
			if res.IsError {
				return fmt.Errorf("tool %s reported an error", args[0])
			}
			return nil
		},
	})

	return cmd
}
