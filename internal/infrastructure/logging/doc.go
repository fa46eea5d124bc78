// Package logging provides structured logging for afkloop.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for unattended runs (machine-parsable)
//   - Text output for watching a session live
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("stage entered", "stage", "matching")
//	logger.Error("capture failed", "error", err)
//
// Core packages never import this package directly. Each declares a small
// Logger interface that *Logger satisfies.
package logging
