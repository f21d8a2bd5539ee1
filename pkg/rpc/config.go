package rpc

import (
	"errors"
	"time"

	"github.com/getmockd/mcpchat/internal/id"
	"github.com/getmockd/mcpchat/pkg/conn"
	"github.com/getmockd/mcpchat/pkg/jsonrpc"
)

// DefaultRequestTimeout bounds how long a call waits for its response.
const DefaultRequestTimeout = 30 * time.Second

// Config configures a Client. The embedded connection config selects the
// endpoint and transport; its Logger, Metrics and AfterFunc are shared by
// the correlator.
type Config struct {
	conn.Config

	// RequestTimeout rejects a call with jsonrpc.ErrTimeout when no response
	// arrives in time. Zero disables the timeout.
	RequestTimeout time.Duration

	// IDGenerator returns request ids. Defaults to UUID v4 strings.
	IDGenerator func() string

	// OnNotification receives inbound frames that carry a method. It runs on
	// the read loop and must not block.
	OnNotification func(f *jsonrpc.Frame)
}

// DefaultConfig returns a Config with default values for url.
func DefaultConfig(url string) *Config {
	cfg := &Config{
		Config:         *conn.DefaultConfig(),
		RequestTimeout: DefaultRequestTimeout,
	}
	cfg.URL = url
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.RequestTimeout < 0 {
		return errors.New("RequestTimeout cannot be negative")
	}
	return c.Config.Validate()
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.IDGenerator == nil {
		out.IDGenerator = id.UUID
	}
	if out.AfterFunc == nil {
		out.AfterFunc = func(d time.Duration, f func()) conn.Timer {
			return time.AfterFunc(d, f)
		}
	}
	return &out
}
