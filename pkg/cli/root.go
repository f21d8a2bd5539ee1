package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configFile  string
	mode        string
	url         string
	fallbackURL string
	transport   string
	timeout     time.Duration
	logLevel    string
	logFormat   string
	logFile     string
	jsonOutput  bool
}

// NewRootCommand builds the mcpchat command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "mcpchat",
		Short: "mcpchat is a JSON-RPC chat client for MCP backends",
		Long: `mcpchat talks to an MCP chat backend over a persistent WebSocket connection,
falling back to HTTP when the WebSocket endpoint cannot be reached.

Configuration can be provided via flags, environment variables, or a configuration file.
mcpchat looks for .mcpchat.yaml in the current directory and for
config.yaml in the mcpchat directory of the user config directory.`,
		// No Run function here means 'mcpchat' with no args will print help text by default.
		SilenceUsage:  true,
		SilenceErrors: true, // We handle errors in Execute()
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "Config file (default: search .mcpchat.yaml, then the global config)")
	pf.StringVar(&opts.mode, "mode", "", "Backend mode: local or cloud")
	pf.StringVar(&opts.url, "url", "", "WebSocket URL, overrides the mode's URL")
	pf.StringVar(&opts.fallbackURL, "fallback-url", "", `HTTP fallback URL ("none" disables the fallback)`)
	pf.StringVar(&opts.transport, "transport", "", "WebSocket implementation: coder or gorilla")
	pf.DurationVar(&opts.timeout, "timeout", 0, "Per-request timeout (0 disables)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")
	pf.StringVar(&opts.logFile, "log-file", "", "Also write debug-level JSON logs to this file")
	pf.BoolVar(&opts.jsonOutput, "json", false, "Output command results in JSON format")

	root.AddCommand(
		newChatCmd(opts),
		newCallCmd(opts),
		newToolsCmd(opts),
		newLookupCmd(opts),
		newReplCmd(opts),
		newConfigCmd(opts),
		newStubCmd(opts),
		newVersionCmd(opts),
	)
	return root
}

// Execute runs the root command until it finishes or the process receives
// an interrupt. This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
