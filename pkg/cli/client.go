package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/mcpchat/pkg/config"
	"github.com/getmockd/mcpchat/pkg/logging"
	"github.com/getmockd/mcpchat/pkg/mcp"
	"github.com/getmockd/mcpchat/pkg/metrics"
	"github.com/getmockd/mcpchat/pkg/rpc"
	"github.com/getmockd/mcpchat/pkg/transport"
)

// loadConfig resolves the effective configuration: files and environment
// first, then the flags the user set.
func (o *globalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := o.configFile
	if path == "" {
		path = config.ConfigFileFromEnv()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	flagCfg := &config.Config{}
	if f.Changed("mode") {
		flagCfg.Mode = o.mode
	}
	if f.Changed("url") {
		flagCfg.URL = o.url
	}
	if f.Changed("fallback-url") {
		flagCfg.FallbackURL = o.fallbackURL
	}
	if f.Changed("transport") {
		flagCfg.Transport = o.transport
	}
	if f.Changed("log-level") {
		flagCfg.LogLevel = o.logLevel
	}
	if f.Changed("log-format") {
		flagCfg.LogFormat = o.logFormat
	}
	config.MergeConfig(cfg, flagCfg, config.SourceFlag)
	if f.Changed("timeout") {
		// Zero is meaningful here and MergeConfig skips zero values.
		cfg.RequestTimeout = o.timeout
		cfg.Sources["requestTimeout"] = config.SourceFlag
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (o *globalOptions) newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, func(), error) {
	stderr := logging.Handler(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: logging.ParseFormat(cfg.LogFormat),
		Output: cmd.ErrOrStderr(),
	})
	if o.logFile == "" {
		return slog.New(stderr), func() {}, nil
	}

	// The log file always gets everything, as JSON.
	f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	file := logging.Handler(logging.Config{
		Level:  logging.LevelDebug,
		Format: logging.FormatJSON,
		Output: f,
	})
	return slog.New(logging.Tee(stderr, file)), func() { _ = f.Close() }, nil
}

// newClient creates a client for the configured endpoint. m may be nil.
func newClient(cfg *config.Config, log *slog.Logger, m *metrics.Client) (*rpc.Client, error) {
	ep := cfg.Endpoint()
	dialer, err := transport.ForName(cfg.Transport)
	if err != nil {
		return nil, err
	}

	rc := rpc.DefaultConfig(ep.WSURL)
	rc.FallbackURL = ep.HTTPURL
	rc.Dialer = dialer
	rc.RequestTimeout = cfg.RequestTimeout
	rc.ReconnectDelay = cfg.ReconnectDelay
	rc.Logger = log
	rc.Metrics = m
	return rpc.NewClient(rc)
}

// session bundles what a chat command needs.
type session struct {
	cfg    *config.Config
	log    *slog.Logger
	client *rpc.Client
	chat   *mcp.Session

	closeLog func()
}

func (o *globalOptions) openSession(cmd *cobra.Command, m *metrics.Client) (*session, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, closeLog, err := o.newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}
	client, err := newClient(cfg, log, m)
	if err != nil {
		closeLog()
		return nil, err
	}
	chat, err := mcp.NewSession(client, mcp.WithLogger(log))
	if err != nil {
		_ = client.Close()
		closeLog()
		return nil, err
	}
	return &session{cfg: cfg, log: log, client: client, chat: chat, closeLog: closeLog}, nil
}

func (s *session) Close() error {
	err := s.client.Close()
	s.closeLog()
	return err
}
