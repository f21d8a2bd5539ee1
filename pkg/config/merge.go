package config

// MergeConfig merges source config into target, updating sources tracking.
// Only non-zero values from source are applied.
func MergeConfig(target, source *Config, sourceType string) {
	if source == nil {
		return
	}
	if target.Sources == nil {
		target.Sources = make(map[string]string)
	}

	mergeString(target, &target.Mode, source.Mode, "mode", sourceType)
	mergeString(target, &target.LocalWSURL, source.LocalWSURL, "localWsUrl", sourceType)
	mergeString(target, &target.CloudWSURL, source.CloudWSURL, "cloudWsUrl", sourceType)
	mergeString(target, &target.HTTPFallbackURL, source.HTTPFallbackURL, "httpFallbackUrl", sourceType)
	mergeString(target, &target.URL, source.URL, "url", sourceType)
	mergeString(target, &target.FallbackURL, source.FallbackURL, "fallbackUrl", sourceType)
	mergeString(target, &target.Transport, source.Transport, "transport", sourceType)
	mergeString(target, &target.LogLevel, source.LogLevel, "logLevel", sourceType)
	mergeString(target, &target.LogFormat, source.LogFormat, "logFormat", sourceType)

	if source.RequestTimeout != 0 {
		target.RequestTimeout = source.RequestTimeout
		target.Sources["requestTimeout"] = sourceType
	}
	if source.ReconnectDelay != 0 {
		target.ReconnectDelay = source.ReconnectDelay
		target.Sources["reconnectDelay"] = sourceType
	}
	if source.ConfigFile != "" {
		target.ConfigFile = source.ConfigFile
	}
}

func mergeString(target *Config, dst *string, v, key, sourceType string) {
	if v == "" {
		return
	}
	*dst = v
	target.Sources[key] = sourceType
}

// fromSource returns the fields of cfg whose source is sourceType.
func fromSource(cfg *Config, sourceType string) *Config {
	out := &Config{}
	set := func(key string) bool { return cfg.Sources[key] == sourceType }

	if set("mode") {
		out.Mode = cfg.Mode
	}
	if set("localWsUrl") {
		out.LocalWSURL = cfg.LocalWSURL
	}
	if set("cloudWsUrl") {
		out.CloudWSURL = cfg.CloudWSURL
	}
	if set("httpFallbackUrl") {
		out.HTTPFallbackURL = cfg.HTTPFallbackURL
	}
	if set("url") {
		out.URL = cfg.URL
	}
	if set("fallbackUrl") {
		out.FallbackURL = cfg.FallbackURL
	}
	if set("transport") {
		out.Transport = cfg.Transport
	}
	if set("requestTimeout") {
		out.RequestTimeout = cfg.RequestTimeout
	}
	if set("reconnectDelay") {
		out.ReconnectDelay = cfg.ReconnectDelay
	}
	if set("logLevel") {
		out.LogLevel = cfg.LogLevel
	}
	if set("logFormat") {
		out.LogFormat = cfg.LogFormat
	}
	return out
}
