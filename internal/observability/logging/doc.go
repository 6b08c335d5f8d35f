// Package logging builds the relay's slog loggers.
//
// New selects a JSON or text handler and a level from LOG_FORMAT and
// LOG_LEVEL. WithCycle stores a logger tagged with cycle_id in the context so
// that every line a cycle writes, including those from the notifier, can be
// correlated. SanitizeError and SanitizeString mask webhook tokens and DSN
// passwords before an error reaches a log line.
//
//	ctx = logging.WithCycle(ctx, uuid.NewString())
//	logging.FromContext(ctx).Info("cycle started")
package logging
