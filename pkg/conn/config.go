package conn

import (
	"errors"
	"log/slog"
	"time"

	"github.com/getmockd/mcpchat/pkg/metrics"
	"github.com/getmockd/mcpchat/pkg/transport"
)

// Default configuration values.
const (
	DefaultReconnectDelay = 3 * time.Second
	DefaultDialTimeout    = 10 * time.Second
	DefaultWriteTimeout   = 10 * time.Second
)

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Config holds connection manager configuration.
type Config struct {
	// URL is the primary WebSocket endpoint.
	URL string

	// FallbackURL is dialed with FallbackDialer when the primary dial fails.
	// Empty disables the fallback.
	FallbackURL string

	// Dialer opens the primary connection. Defaults to transport.WebSocketDialer.
	Dialer transport.Dialer

	// FallbackDialer opens the fallback connection. Defaults to transport.HTTPDialer.
	FallbackDialer transport.Dialer

	// ReconnectDelay is the fixed delay between an abnormal close and the
	// next connection attempt.
	ReconnectDelay time.Duration

	// DisableReconnect turns off the reconnect policy for abnormal closes.
	// Calls still in flight are then rejected when the connection drops.
	DisableReconnect bool

	// DialTimeout bounds one connection attempt.
	DialTimeout time.Duration

	// WriteTimeout bounds one Send when the caller's context has no deadline.
	WriteTimeout time.Duration

	// Logger receives lifecycle and protocol logs. Defaults to a no-op logger.
	Logger *slog.Logger

	// Metrics receives connection metrics. Optional.
	Metrics *metrics.Client

	// AfterFunc schedules reconnect timers. Defaults to time.AfterFunc.
	AfterFunc AfterFunc
}

// DefaultConfig returns a Config with default values and no URL.
func DefaultConfig() *Config {
	return &Config{
		ReconnectDelay: DefaultReconnectDelay,
		DialTimeout:    DefaultDialTimeout,
		WriteTimeout:   DefaultWriteTimeout,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("URL is required")
	}
	if c.ReconnectDelay < 0 {
		return errors.New("ReconnectDelay cannot be negative")
	}
	return nil
}

// withDefaults fills zero values.
func (c *Config) withDefaults() *Config {
	out := *c
	if out.Dialer == nil {
		out.Dialer = &transport.WebSocketDialer{}
	}
	if out.FallbackDialer == nil {
		out.FallbackDialer = &transport.HTTPDialer{}
	}
	if out.ReconnectDelay == 0 {
		out.ReconnectDelay = DefaultReconnectDelay
	}
	if out.DialTimeout <= 0 {
		out.DialTimeout = DefaultDialTimeout
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = DefaultWriteTimeout
	}
	if out.AfterFunc == nil {
		out.AfterFunc = realAfterFunc
	}
	return &out
}
