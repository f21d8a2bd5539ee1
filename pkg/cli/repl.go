package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/getmockd/mcpchat/pkg/conn"
	"github.com/getmockd/mcpchat/pkg/mcp"
	"github.com/getmockd/mcpchat/pkg/metrics"
)

const replHelp = `Commands:
  /lookup <customer-id>    Ask about a customer
  /tools                   List tools
  /call <method> [json]    Call a JSON-RPC method
  /state                   Show connection state
  /quit                    Leave
Anything else is sent as a chat message.`

func newReplCmd(opts *globalOptions) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Chat interactively over one persistent connection",
		Long: `Chat interactively over one persistent connection.

Connection state changes are reported on stderr. With --metrics-addr the
client metrics are served in Prometheus text format at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := metrics.NewRegistry()
			s, err := opts.openSession(cmd, metrics.NewClient(reg, conn.StateNames()...))
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			g, ctx := errgroup.WithContext(ctx)

			states, stopWatch := s.client.Watch()
			defer stopWatch()
			g.Go(func() error {
				for {
					select {
					case st, ok := <-states:
						if !ok {
							return nil
						}
						fmt.Fprintf(cmd.ErrOrStderr(), "[connection %s]\n", st)
					case <-ctx.Done():
						return nil
					}
				}
			})

			if metricsAddr != "" {
				if err := serveMetrics(ctx, g, metricsAddr, reg, cmd.ErrOrStderr()); err != nil {
					return err
				}
			}

			g.Go(func() error {
				defer cancel()
				return runRepl(ctx, s, cmd.InOrStdin(), cmd.OutOrStdout())
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve metrics on this address (e.g. 127.0.0.1:9090)")
	return cmd
}

func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, reg *metrics.Registry, log io.Writer) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	fmt.Fprintf(log, "metrics on http://%s/metrics\n", ln.Addr())

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return nil
}

// runRepl handles input lines until EOF, /quit or cancellation.
func runRepl(ctx context.Context, s *session, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	fmt.Fprintln(out, "Type a message, /help for commands.")
	for {
		var line string
		select {
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(l)
		case <-ctx.Done():
			return nil
		}
		if line == "" {
			continue
		}
		if quit := handleLine(ctx, s, line, out); quit {
			return nil
		}
	}
}

func handleLine(ctx context.Context, s *session, line string, out io.Writer) bool {
	if !strings.HasPrefix(line, "/") {
		reply, err := s.chat.SendChat(ctx, line)
		if err != nil {
			fmt.Fprintln(out, mcp.FailureText(err))
		} else {
			fmt.Fprintln(out, reply)
		}
		return false
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(out, replHelp)
	case "/state":
		st := s.client.Stats()
		fmt.Fprintf(out, "%s via %s (%s), reconnects %d, pending %d\n",
			st.State, transportName(st.Transport), st.URL, st.Reconnects, s.client.Pending())
	case "/lookup":
		if rest == "" {
			fmt.Fprintln(out, "usage: /lookup <customer-id>")
			return false
		}
		done := make(chan string, 1)
		s.chat.LookupCustomer(ctx, rest, func(text string, _ bool) { done <- text })
		select {
		case text := <-done:
			fmt.Fprintln(out, text)
		case <-ctx.Done():
		}
	case "/tools":
		tools, err := s.chat.ListTools(ctx)
		if err != nil {
			fmt.Fprintln(out, mcp.FailureText(err))
			return false
		}
		for _, t := range tools {
			fmt.Fprintf(out, "%s  %s\n", t.Name, t.Description)
		}
	case "/call":
		method, params, _ := strings.Cut(rest, " ")
		if method == "" {
			fmt.Fprintln(out, "usage: /call <method> [json]")
			return false
		}
		raw, err := parseJSONArg([]string{strings.TrimSpace(params)})
		if err != nil {
			fmt.Fprintln(out, "Error: "+err.Error())
			return false
		}
		res, err := s.client.Call(ctx, method, raw)
		if err != nil {
			fmt.Fprintln(out, mcp.FailureText(err))
			return false
		}
		fmt.Fprintln(out, string(res))
	default:
		fmt.Fprintf(out, "unknown command %s, /help for commands\n", name)
	}
	return false
}

func transportName(t string) string {
	if t == "" {
		return "none"
	}
	return t
}
