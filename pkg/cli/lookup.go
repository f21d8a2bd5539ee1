package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/mcpchat/pkg/cli/internal/output"
)

func newLookupCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <customer-id>",
		Short: "Ask the assistant about a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			done := make(chan string, 1)
			s.chat.LookupCustomer(cmd.Context(), args[0], func(text string, final bool) {
				if final {
					done <- text
				}
			})

			var text string
			select {
			case text = <-done:
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}

			if opts.jsonOutput {
				return output.JSON(cmd.OutOrStdout(), map[string]string{"customerId": args[0], "reply": text})
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
