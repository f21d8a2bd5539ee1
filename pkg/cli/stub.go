package cli

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	stub "github.com/getmockd/mcpchat/pkg/testing"
)

func newStubCmd(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Run an echo chat backend for local development",
		Long: `Run an echo chat backend for local development.

The backend answers chat/message, ping, tools/list and tools/call over
WebSocket and HTTP POST on the same address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			log, closeLog, err := opts.newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			defer closeLog()
			srv := stub.NewServer(log)
			srv.RegisterDefaults()

			return srv.ListenAndServe(cmd.Context(), addr, func(a net.Addr) {
				fmt.Fprintf(cmd.OutOrStdout(), "stub backend on ws://%s (HTTP fallback http://%s)\n", a, a)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3003", "Listen address")
	return cmd
}
