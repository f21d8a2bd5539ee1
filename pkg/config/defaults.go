package config

import "time"

// Default values.
const (
	DefaultMode            = ModeLocal
	DefaultLocalWSURL      = "ws://localhost:3003"
	DefaultCloudWSURL      = "wss://your-cloud-server.com"
	DefaultHTTPFallbackURL = "http://localhost:3005"
	DefaultTransport       = "coder"
	DefaultRequestTimeout  = 30 * time.Second
	DefaultReconnectDelay  = 3 * time.Second
	DefaultLogLevel        = "warn"
	DefaultLogFormat       = "text"
)

// NewDefault creates a new Config with default values.
func NewDefault() *Config {
	cfg := &Config{
		Mode:            DefaultMode,
		LocalWSURL:      DefaultLocalWSURL,
		CloudWSURL:      DefaultCloudWSURL,
		HTTPFallbackURL: DefaultHTTPFallbackURL,
		Transport:       DefaultTransport,
		RequestTimeout:  DefaultRequestTimeout,
		ReconnectDelay:  DefaultReconnectDelay,
		LogLevel:        DefaultLogLevel,
		LogFormat:       DefaultLogFormat,
		Sources:         make(map[string]string),
	}
	for _, key := range []string{
		"mode", "localWsUrl", "cloudWsUrl", "httpFallbackUrl", "transport",
		"requestTimeout", "reconnectDelay", "logLevel", "logFormat",
	} {
		cfg.Sources[key] = SourceDefault
	}
	return cfg
}
