package logger

import (
	"context"

	sqldblogger "github.com/simukti/sqldb-logger"
	"go.uber.org/zap"
)

// SQLLogger adapts zap to sqldblogger.Logger.
type SQLLogger struct {
	logger *zap.Logger
}

// NewSQLLogger wraps logger for database/sql query logging.
func NewSQLLogger(logger *zap.Logger) *SQLLogger {
	return &SQLLogger{logger: logger.Named("sql")}
}

// Log implements sqldblogger.Logger.
func (l *SQLLogger) Log(_ context.Context, level sqldblogger.Level, msg string, data map[string]interface{}) {
	fields := make([]zap.Field, 0, len(data))
	for k, v := range data {
		fields = append(fields, zap.Any(k, v))
	}

	switch level {
	case sqldblogger.LevelError:
		l.logger.Error(msg, fields...)
	case sqldblogger.LevelInfo:
		l.logger.Info(msg, fields...)
	default:
		l.logger.Debug(msg, fields...)
	}
}

var _ sqldblogger.Logger = (*SQLLogger)(nil)
