package auth

import (
	retry "github.com/appleboy/go-httpretry"
	"github.com/phuslu/log"
)

// retryLogger routes go-httpretry events into a phuslu logger. Every event is
// logged at debug level because callers report the final failure themselves.
type retryLogger struct {
	logger *log.Logger
}

// NewRetryLogger adapts logger for retry.WithLogger.
func NewRetryLogger(logger *log.Logger) retry.Logger {
	return retryLogger{logger: logger}
}

func (l retryLogger) Debug(msg string, args ...any) { l.log(msg, args) }
func (l retryLogger) Info(msg string, args ...any)  { l.log(msg, args) }
func (l retryLogger) Warn(msg string, args ...any)  { l.log(msg, args) }
func (l retryLogger) Error(msg string, args ...any) { l.log(msg, args) }

func (l retryLogger) log(msg string, args []any) {
	l.logger.Debug().Str("component", "httpretry").KeysAndValues(args...).Msg(msg)
}
