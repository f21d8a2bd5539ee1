// Package logging provides structured logging configuration for mcpchat.
//
// This package wraps log/slog so the connection manager, the request
// correlator and the CLI all log the same way.
//
// # Usage
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelDebug,
//	    Format: logging.FormatJSON,
//	})
//
//	log := logging.Component(logger, "conn")
//	log.Info("connected", "url", "ws://localhost:3003")
//
// Components accept a *slog.Logger through their Config. A nil logger means
// logging.Nop().
//
// # Tee
//
// Tee fans records out to several handlers, which the CLI uses to keep
// logging to stderr while also appending to a --log-file.
package logging
