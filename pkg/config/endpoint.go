package config

import "strings"

// Endpoint resolves the endpoints selected by the mode. Explicit URL and
// FallbackURL values override the mode's choice.
func (c *Config) Endpoint() Endpoint {
	ep := Endpoint{Mode: c.Mode}

	switch c.Mode {
	case ModeCloud:
		ep.WSURL = c.CloudWSURL
		ep.HTTPURL = cloudHTTPURL(c.CloudWSURL)
	default:
		ep.WSURL = c.LocalWSURL
		ep.HTTPURL = c.HTTPFallbackURL
	}

	if c.URL != "" {
		ep.WSURL = c.URL
	}
	switch c.FallbackURL {
	case "":
	case NoFallback:
		ep.HTTPURL = ""
	default:
		ep.HTTPURL = c.FallbackURL
	}
	return ep
}

// cloudHTTPURL derives the HTTP fallback from the cloud WebSocket URL.
func cloudHTTPURL(wsURL string) string {
	switch {
	case strings.HasPrefix(wsURL, "wss://"):
		return "https://" + strings.TrimPrefix(wsURL, "wss://")
	case strings.HasPrefix(wsURL, "ws://"):
		return "http://" + strings.TrimPrefix(wsURL, "ws://")
	}
	return wsURL
}
