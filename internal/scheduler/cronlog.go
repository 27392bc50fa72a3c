package scheduler

import "github.com/raoulx24/folder-archiver/internal/logging"

// cronLogger routes cron's internal logging into the diagnostic logger.
// cron reports every schedule and run at info level, so that goes to debug.
type cronLogger struct {
	log logging.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
