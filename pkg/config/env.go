package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variable names
const (
	EnvConfig          = "MCPCHAT_CONFIG"
	EnvBackendMode     = "MCPCHAT_BACKEND_MODE"
	EnvLocalWSURL      = "MCPCHAT_LOCAL_WS_URL"
	EnvCloudWSURL      = "MCPCHAT_CLOUD_WS_URL"
	EnvHTTPFallbackURL = "MCPCHAT_HTTP_FALLBACK_URL"
	EnvTransport       = "MCPCHAT_TRANSPORT"
	EnvRequestTimeout  = "MCPCHAT_REQUEST_TIMEOUT"
	EnvReconnectDelay  = "MCPCHAT_RECONNECT_DELAY"
	EnvLogLevel        = "MCPCHAT_LOG_LEVEL"
	EnvLogFormat       = "MCPCHAT_LOG_FORMAT"
)

// LoadEnvConfig loads configuration from environment variables.
// It only sets values that are present in the environment. Durations accept
// Go duration syntax ("30s") or a bare number of milliseconds.
func LoadEnvConfig(cfg *Config) {
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]string)
	}

	envString(cfg, &cfg.Mode, EnvBackendMode, "mode")
	envString(cfg, &cfg.LocalWSURL, EnvLocalWSURL, "localWsUrl")
	envString(cfg, &cfg.CloudWSURL, EnvCloudWSURL, "cloudWsUrl")
	envString(cfg, &cfg.HTTPFallbackURL, EnvHTTPFallbackURL, "httpFallbackUrl")
	envString(cfg, &cfg.Transport, EnvTransport, "transport")
	envString(cfg, &cfg.LogLevel, EnvLogLevel, "logLevel")
	envString(cfg, &cfg.LogFormat, EnvLogFormat, "logFormat")

	if d, ok := envDuration(EnvRequestTimeout); ok {
		cfg.RequestTimeout = d
		cfg.Sources["requestTimeout"] = SourceEnv
	}
	if d, ok := envDuration(EnvReconnectDelay); ok {
		cfg.ReconnectDelay = d
		cfg.Sources["reconnectDelay"] = SourceEnv
	}
}

func envString(cfg *Config, dst *string, name, key string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
		cfg.Sources[key] = SourceEnv
	}
}

func envDuration(name string) (time.Duration, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	return ParseDuration(v)
}

// ParseDuration parses Go duration syntax or a bare number of milliseconds.
func ParseDuration(s string) (time.Duration, bool) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, true
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, true
	}
	return 0, false
}

// ConfigFileFromEnv returns the config file named by MCPCHAT_CONFIG.
func ConfigFileFromEnv() string {
	return os.Getenv(EnvConfig)
}
