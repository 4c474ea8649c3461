package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQuery is the slow query threshold when none is configured
const DefaultSlowQuery = 200 * time.Millisecond

// GormLogger routes GORM's output through zap. Statement traces carry the
// correlation fields of the context they ran under, so SQL issued by an
// attachment job is tagged with its job ID and document.
type GormLogger struct {
	logger    *zap.Logger
	level     gormlogger.LogLevel
	slowQuery time.Duration
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// NewGormLogger creates a GORM logger. A slowQuery of zero selects
// DefaultSlowQuery; a negative one disables slow query warnings.
func NewGormLogger(log *zap.Logger, level gormlogger.LogLevel, slowQuery time.Duration) *GormLogger {
	if slowQuery == 0 {
		slowQuery = DefaultSlowQuery
	}
	return &GormLogger{
		logger:    log.Named("gorm"),
		level:     level,
		slowQuery: slowQuery,
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.logger.Info(fmt.Sprintf(msg, data...), ContextFields(ctx)...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, data...), ContextFields(ctx)...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.logger.Error(fmt.Sprintf(msg, data...), ContextFields(ctx)...)
	}
}

// Trace logs one executed statement. Record-not-found is not logged as an
// error since repositories translate it into a domain not-found.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound)
	slow := l.slowQuery > 0 && elapsed > l.slowQuery

	var write func(string, ...zap.Field)
	msg := "sql"
	switch {
	case failed && l.level >= gormlogger.Error:
		write, msg = l.logger.Error, "sql failed"
	case slow && l.level >= gormlogger.Warn:
		write, msg = l.logger.Warn, fmt.Sprintf("slow sql over %s", l.slowQuery)
	case l.level >= gormlogger.Info:
		write = l.logger.Debug
	default:
		return
	}

	sql, rows := fc()
	fields := append(ContextFields(ctx),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)
	if failed {
		fields = append(fields, zap.Error(err))
	}
	write(msg, fields...)
}

// MapGormLogLevel maps the service log level onto GORM's. Debug and info
// trace every statement; anything unknown keeps warnings and errors.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
