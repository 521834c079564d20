// Package logging provides structured logging for the lab panel core.
//
// It wraps log/slog so every component logs with the same shape:
// JSON or text output, level filtering, and default service/version fields.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "port", 3000)
//	logger.Error("failed to connect", "error", err)
//
// Never log door credentials, tokens or password hashes.
package logging
