/*
Package notify builds structured notifications from the analyzer's
classification bundle and defines the Notifier seam to the chat transport.

The builder is pure: given the same bundle it produces the same title,
color, fields, and recommended actions. Title selection is first-match over
coordination, severity, failover, CDN, maintenance window, and change type.

Two Notifier implementations ship with the binary: LogNotifier (structured
log sink, the default) and WebhookNotifier (JSON POST to a configured URL).
Chat-specific embed rendering lives with the webhook consumer.
*/
package notify
