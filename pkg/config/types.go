package config

import "time"

// Config is the complete client configuration.
type Config struct {
	// Backend selection
	Mode            string `yaml:"mode" json:"mode"`
	LocalWSURL      string `yaml:"localWsUrl" json:"localWsUrl"`
	CloudWSURL      string `yaml:"cloudWsUrl" json:"cloudWsUrl"`
	HTTPFallbackURL string `yaml:"httpFallbackUrl" json:"httpFallbackUrl"`

	// Explicit endpoint overrides. FallbackURL "none" disables the fallback.
	URL         string `yaml:"url,omitempty" json:"url,omitempty"`
	FallbackURL string `yaml:"fallbackUrl,omitempty" json:"fallbackUrl,omitempty"`

	// Connection settings
	Transport      string        `yaml:"transport" json:"transport"`
	RequestTimeout time.Duration `yaml:"requestTimeout" json:"requestTimeout"`
	ReconnectDelay time.Duration `yaml:"reconnectDelay" json:"reconnectDelay"`

	// Logging settings
	LogLevel  string `yaml:"logLevel" json:"logLevel"`
	LogFormat string `yaml:"logFormat" json:"logFormat"`

	// ConfigFile is the explicit config file, if any.
	ConfigFile string `yaml:"-" json:"configFile,omitempty"`

	// Sources tracks where each value came from (for debugging)
	Sources map[string]string `yaml:"-" json:"-"`
}

// Config sources.
const (
	SourceDefault = "default"
	SourceEnv     = "env"
	SourceGlobal  = "global"
	SourceLocal   = "local"
	SourceFile    = "file"
	SourceFlag    = "flag"
)

// Backend modes.
const (
	ModeLocal = "local"
	ModeCloud = "cloud"
)

// NoFallback disables the HTTP fallback when used as FallbackURL.
const NoFallback = "none"

// Endpoint is the resolved pair of endpoints for a mode.
type Endpoint struct {
	Mode    string `yaml:"mode" json:"mode"`
	WSURL   string `yaml:"wsUrl" json:"wsUrl"`
	HTTPURL string `yaml:"httpUrl,omitempty" json:"httpUrl,omitempty"`
}

// IsLocal reports whether the endpoint was selected by local mode.
func (e Endpoint) IsLocal() bool { return e.Mode == ModeLocal }

// IsCloud reports whether the endpoint was selected by cloud mode.
func (e Endpoint) IsCloud() bool { return e.Mode == ModeCloud }
