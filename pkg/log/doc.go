/*
Package log provides structured logging for Driftwatch using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level for production debugging.

# Usage

Initialize once at startup:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Create component loggers:

	logger := log.WithComponent("observer")
	logger.Info().Str("domain", "example.com").Msg("check complete")

Per-domain child loggers attach the domain field to every event:

	dl := log.WithDomain("example.com")
	dl.Warn().Msg("authority unreachable")

# Log Levels

  - debug: Unchanged checks, store sweeps, API requests
  - info: Lifecycle events, emitted and suppressed notifications, domain add/remove
  - warn: Integrity recoveries, retryable errors
  - error: Transport failures, notifier failures

Console output (human-readable) is the default; JSON output is intended for
production log shipping.
*/
package log
