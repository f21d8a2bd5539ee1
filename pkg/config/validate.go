package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	validTransports = []string{"coder", "websocket", "gorilla"}
	validLogLevels  = []string{"debug", "info", "warn", "warning", "error"}
	validLogFormats = []string{"text", "json"}
)

// Validate checks the configuration and returns all problems found.
func (c *Config) Validate() error {
	var errs []error

	ep := c.Endpoint()
	if err := checkURL("WebSocket URL", ep.WSURL, "ws", "wss"); err != nil {
		errs = append(errs, err)
	}
	if ep.HTTPURL != "" {
		if err := checkURL("fallback URL", ep.HTTPURL, "http", "https"); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Transport != "" && !oneOf(c.Transport, validTransports) {
		errs = append(errs, fmt.Errorf("transport %q is not one of %s", c.Transport, strings.Join(validTransports, ", ")))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("requestTimeout %s cannot be negative", c.RequestTimeout))
	}
	if c.ReconnectDelay < 0 {
		errs = append(errs, fmt.Errorf("reconnectDelay %s cannot be negative", c.ReconnectDelay))
	}
	if c.LogLevel != "" && !oneOf(c.LogLevel, validLogLevels) {
		errs = append(errs, fmt.Errorf("logLevel %q is not one of %s", c.LogLevel, strings.Join(validLogLevels, ", ")))
	}
	if c.LogFormat != "" && !oneOf(c.LogFormat, validLogFormats) {
		errs = append(errs, fmt.Errorf("logFormat %q is not one of %s", c.LogFormat, strings.Join(validLogFormats, ", ")))
	}

	return errors.Join(errs...)
}

func checkURL(name, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s %q: %w", name, raw, err)
	}
	if !oneOf(u.Scheme, schemes) {
		return fmt.Errorf("%s %q: scheme must be %s", name, raw, strings.Join(schemes, " or "))
	}
	if u.Host == "" {
		return fmt.Errorf("%s %q: host is required", name, raw)
	}
	return nil
}

func oneOf(v string, options []string) bool {
	for _, o := range options {
		if strings.EqualFold(v, o) {
			return true
		}
	}
	return false
}
