package cli

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/getmockd/mcpchat/pkg/cli/internal/output"
)

func newCallCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "call <method> [params-json]",
		Short: "Call a JSON-RPC method and print its result",
		Example: `  mcpchat call ping
  mcpchat call chat/message '{"text":"hello"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseJSONArg(args[1:])
			if err != nil {
				return err
			}

			s, err := opts.openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.client.Call(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			return output.JSON(cmd.OutOrStdout(), res)
		},
	}
}

// parseJSONArg returns the optional JSON argument, or nil when absent.
func parseJSONArg(args []string) (json.RawMessage, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, nil
	}
	raw := json.RawMessage(args[0])
	if !json.Valid(raw) {
		return nil, errors.New("params must be valid JSON")
	}
	return raw, nil
}
