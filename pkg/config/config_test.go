package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the global config dir and the working directory at fresh
// temp dirs and clears MCPCHAT_* variables.
func isolate(t *testing.T) (globalDir, workDir string) {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	for _, name := range []string{
		EnvConfig, EnvBackendMode, EnvLocalWSURL, EnvCloudWSURL, EnvHTTPFallbackURL,
		EnvTransport, EnvRequestTimeout, EnvReconnectDelay, EnvLogLevel, EnvLogFormat,
	} {
		t.Setenv(name, "")
	}
	workDir = t.TempDir()
	t.Chdir(workDir)

	globalDir = filepath.Join(xdg, GlobalConfigDir)
	require.NoError(t, os.MkdirAll(globalDir, 0o755))
	return globalDir, workDir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestEndpoint_Modes(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantWS    string
		wantHTTP  string
		wantLocal bool
		wantCloud bool
	}{
		{
			name:      "local defaults",
			mutate:    func(*Config) {},
			wantWS:    "ws://localhost:3003",
			wantHTTP:  "http://localhost:3005",
			wantLocal: true,
		},
		{
			name:      "cloud derives https fallback",
			mutate:    func(c *Config) { c.Mode = ModeCloud },
			wantWS:    "wss://your-cloud-server.com",
			wantHTTP:  "https://your-cloud-server.com",
			wantCloud: true,
		},
		{
			name: "cloud with ws url derives http fallback",
			mutate: func(c *Config) {
				c.Mode = ModeCloud
				c.CloudWSURL = "ws://chat.internal:9000/ws"
			},
			wantWS:    "ws://chat.internal:9000/ws",
			wantHTTP:  "http://chat.internal:9000/ws",
			wantCloud: true,
		},
		{
			name:     "unknown mode behaves like local",
			mutate:   func(c *Config) { c.Mode = "staging" },
			wantWS:   "ws://localhost:3003",
			wantHTTP: "http://localhost:3005",
		},
		{
			name: "explicit overrides",
			mutate: func(c *Config) {
				c.Mode = ModeCloud
				c.URL = "ws://127.0.0.1:1234"
				c.FallbackURL = "http://127.0.0.1:1235"
			},
			wantWS:    "ws://127.0.0.1:1234",
			wantHTTP:  "http://127.0.0.1:1235",
			wantCloud: true,
		},
		{
			name:      "fallback disabled",
			mutate:    func(c *Config) { c.FallbackURL = NoFallback },
			wantWS:    "ws://localhost:3003",
			wantHTTP:  "",
			wantLocal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)
			ep := cfg.Endpoint()
			assert.Equal(t, tt.wantWS, ep.WSURL)
			assert.Equal(t, tt.wantHTTP, ep.HTTPURL)
			assert.Equal(t, tt.wantLocal, ep.IsLocal())
			assert.Equal(t, tt.wantCloud, ep.IsCloud())
			assert.Equal(t, cfg.Mode, ep.Mode)
		})
	}
}

func TestLoadAll_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadAll()
	require.NoError(t, err)
	assert.Equal(t, NewDefault().Endpoint(), cfg.Endpoint())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, SourceDefault, cfg.Sources["mode"])
	require.NoError(t, cfg.Validate())
}

func TestLoadAll_Precedence(t *testing.T) {
	globalDir, workDir := isolate(t)

	writeFile(t, filepath.Join(globalDir, "config.yaml"), `
mode: cloud
cloudWsUrl: wss://global.example.com
requestTimeout: 10s
logLevel: info
`)
	writeFile(t, filepath.Join(workDir, ".mcpchat.yaml"), `
cloudWsUrl: wss://local.example.com
reconnectDelay: 500ms
`)
	t.Setenv(EnvRequestTimeout, "2500")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := LoadAll()
	require.NoError(t, err)

	assert.Equal(t, ModeCloud, cfg.Mode)
	assert.Equal(t, SourceGlobal, cfg.Sources["mode"])
	assert.Equal(t, "wss://local.example.com", cfg.CloudWSURL)
	assert.Equal(t, SourceLocal, cfg.Sources["cloudWsUrl"])
	assert.Equal(t, 500*time.Millisecond, cfg.ReconnectDelay)
	assert.Equal(t, 2500*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, SourceEnv, cfg.Sources["requestTimeout"])
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, SourceDefault, cfg.Sources["transport"])

	ep := cfg.Endpoint()
	assert.Equal(t, "wss://local.example.com", ep.WSURL)
	assert.Equal(t, "https://local.example.com", ep.HTTPURL)
}

func TestLoadAll_ExplicitFileSkipsSearch(t *testing.T) {
	globalDir, _ := isolate(t)
	writeFile(t, filepath.Join(globalDir, "config.yaml"), "mode: cloud\n")

	explicit := filepath.Join(t.TempDir(), "chat.yaml")
	writeFile(t, explicit, "localWsUrl: ws://explicit:1\n")
	t.Setenv(EnvConfig, explicit)

	cfg, err := LoadAll()
	require.NoError(t, err)
	assert.Equal(t, ModeLocal, cfg.Mode, "global file is not read")
	assert.Equal(t, "ws://explicit:1", cfg.LocalWSURL)
	assert.Equal(t, SourceFile, cfg.Sources["localWsUrl"])
	assert.Equal(t, explicit, cfg.ConfigFile)
}

func TestLoadFrom_MissingFile(t *testing.T) {
	isolate(t)
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadConfigFile_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		content  string
		wantLine int
		wantMsg  string
	}{
		{"unknown key", "mode: local\ncolour: blue\n", 2, "colour"},
		{"bad duration", "requestTimeout: soon\n", 1, "time.Duration"},
		{"syntax", "mode: local\n  bad: [\n", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".yaml")
			writeFile(t, path, tt.content)

			_, err := LoadConfigFile(path)
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, path, ce.Path)
			if tt.wantLine > 0 {
				assert.Equal(t, tt.wantLine, ce.Line)
			} else {
				assert.Positive(t, ce.Line)
			}
			assert.Contains(t, ce.Message, tt.wantMsg)
			assert.Contains(t, err.Error(), path+" (line ")
		})
	}
}

func TestLoadConfigFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	writeFile(t, path, "")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Mode)
}

func TestLoadEnvConfig(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBackendMode, "cloud")
	t.Setenv(EnvCloudWSURL, "wss://env.example.com")
	t.Setenv(EnvHTTPFallbackURL, "http://env:1")
	t.Setenv(EnvTransport, "gorilla")
	t.Setenv(EnvReconnectDelay, "1s")
	t.Setenv(EnvRequestTimeout, "not-a-duration")
	t.Setenv(EnvLogFormat, "json")

	cfg := NewDefault()
	LoadEnvConfig(cfg)

	assert.Equal(t, ModeCloud, cfg.Mode)
	assert.Equal(t, "wss://env.example.com", cfg.CloudWSURL)
	assert.Equal(t, "gorilla", cfg.Transport)
	assert.Equal(t, time.Second, cfg.ReconnectDelay)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout, "invalid values are ignored")
	assert.Equal(t, SourceDefault, cfg.Sources["requestTimeout"])
	assert.Equal(t, "json", cfg.LogFormat)
	for _, key := range []string{"mode", "cloudWsUrl", "httpFallbackUrl", "transport", "reconnectDelay", "logFormat"} {
		assert.Equal(t, SourceEnv, cfg.Sources[key], key)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"3000", 3 * time.Second, true},
		{"250ms", 250 * time.Millisecond, true},
		{"1m", time.Minute, true},
		{"0", 0, true},
		{"soon", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseDuration(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestMergeConfig_FlagsWin(t *testing.T) {
	cfg := NewDefault()
	MergeConfig(cfg, &Config{URL: "ws://flag:1", RequestTimeout: time.Second}, SourceFlag)

	assert.Equal(t, "ws://flag:1", cfg.Endpoint().WSURL)
	assert.Equal(t, SourceFlag, cfg.Sources["url"])
	assert.Equal(t, SourceFlag, cfg.Sources["requestTimeout"])
	assert.Equal(t, SourceDefault, cfg.Sources["mode"])

	MergeConfig(cfg, nil, SourceEnv)
	assert.Equal(t, "ws://flag:1", cfg.URL)
}

func TestReload_KeepsFlags(t *testing.T) {
	_, workDir := isolate(t)
	local := filepath.Join(workDir, ".mcpchat.yaml")
	writeFile(t, local, "localWsUrl: ws://first:1\n")

	cfg, err := LoadAll()
	require.NoError(t, err)
	MergeConfig(cfg, &Config{LogLevel: "debug"}, SourceFlag)

	writeFile(t, local, "localWsUrl: ws://second:2\nlogLevel: error\n")
	fresh, err := Reload(cfg)
	require.NoError(t, err)

	assert.Equal(t, "ws://second:2", fresh.LocalWSURL)
	assert.Equal(t, "debug", fresh.LogLevel)
	assert.Equal(t, SourceFlag, fresh.Sources["logLevel"])
	assert.Equal(t, "ws://first:1", cfg.LocalWSURL, "the old value is not mutated")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"valid cloud", func(c *Config) { c.Mode = ModeCloud }, ""},
		{"bad ws scheme", func(c *Config) { c.LocalWSURL = "http://localhost:3003" }, "scheme must be ws or wss"},
		{"missing host", func(c *Config) { c.LocalWSURL = "ws://" }, "host is required"},
		{"empty ws url", func(c *Config) { c.LocalWSURL = "" }, "WebSocket URL is required"},
		{"bad fallback scheme", func(c *Config) { c.HTTPFallbackURL = "ftp://x" }, "scheme must be http or https"},
		{"no fallback is fine", func(c *Config) { c.FallbackURL = NoFallback }, ""},
		{"unknown transport", func(c *Config) { c.Transport = "carrier-pigeon" }, `transport "carrier-pigeon"`},
		{"negative timeout", func(c *Config) { c.RequestTimeout = -time.Second }, "requestTimeout -1s cannot be negative"},
		{"negative delay", func(c *Config) { c.ReconnectDelay = -time.Second }, "reconnectDelay"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, `logLevel "loud"`},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, `logFormat "xml"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
