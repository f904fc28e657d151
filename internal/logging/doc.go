// Package logging provides structured logging for dmxsync.
//
// This package wraps a zap logger with convenience functions. Logging is
// silent by default so the dashboard and CLI output are never interleaved
// with log lines; set DMXSYNC_LOG_LEVEL or pass --log-level to enable it.
//
// # Log Levels
//
//   - Debug: push payloads, request URLs, skipped fields
//   - Info: connection lifecycle, refresh and submit outcomes
//   - Warn: dropped sends, unknown push types, cache failures
//   - Error: failures that stop a command
//
// # Specialized Logging
//
//	logging.LogConnection(url, "connected")
//	logging.LogPushMessage("received", "status", payload)
//	logging.LogHTTPRequest("GET", url, 200, nil)
//
// # Output Format
//
// Logs are written to stderr in console format:
//
//	2025-11-25T10:30:45.123-0800  INFO  Connection event  {"url": "ws://dmx.local/ws", "event": "connected"}
package logging
