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

const (
	defaultSlowThreshold = 200 * time.Millisecond
	// a month of sales upserts renders as one very long INSERT
	defaultMaxSQLLength = 2000
)

// GormLogger routes GORM statements to zap with the request and run IDs of
// the statement's context
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	maxSQLLength  int
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which statements are logged as slow.
// Zero disables slow statement logging.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// WithMaxSQLLength truncates logged statements to n bytes. Zero keeps them whole.
func WithMaxSQLLength(n int) GormLoggerOption {
	return func(l *GormLogger) {
		l.maxSQLLength = n
	}
}

// NewGormLogger creates a GORM logger writing to zapLogger at level
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	l := &GormLogger{
		logger:        zapLogger,
		level:         level,
		slowThreshold: defaultSlowThreshold,
		maxSQLLength:  defaultMaxSQLLength,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode returns a copy of the logger at level
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.logger.Info(fmt.Sprintf(msg, data...), Fields(ctx)...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, data...), Fields(ctx)...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.logger.Error(fmt.Sprintf(msg, data...), Fields(ctx)...)
	}
}

// Trace logs one executed statement. Not-found lookups are expected and never
// logged; statements aborted by a cancelled sync are logged as warnings.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	if errors.Is(err, gormlogger.ErrRecordNotFound) {
		err = nil
	}

	elapsed := time.Since(begin)
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold
	canceled := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)

	var msg string
	var write func(string, ...zap.Field)
	switch {
	case err != nil && canceled && l.level >= gormlogger.Warn:
		msg, write = "SQL canceled", l.logger.Warn
	case err != nil && !canceled && l.level >= gormlogger.Error:
		msg, write = "SQL error", l.logger.Error
	case err == nil && slow && l.level >= gormlogger.Warn:
		msg, write = "Slow SQL", l.logger.Warn
	case err == nil && l.level >= gormlogger.Info:
		msg, write = "SQL", l.logger.Debug
	default:
		return
	}

	sql, rows := fc()
	fields := append([]zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", l.truncate(sql)),
	}, Fields(ctx)...)
	if slow {
		fields = append(fields, zap.Duration("slow_threshold", l.slowThreshold))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	write(msg, fields...)
}

func (l *GormLogger) truncate(sql string) string {
	if l.maxSQLLength <= 0 || len(sql) <= l.maxSQLLength {
		return sql
	}
	return sql[:l.maxSQLLength] + fmt.Sprintf("... (%d bytes)", len(sql))
}

// MapGormLogLevel maps the database.log_level setting to a GORM level,
// defaulting to warn
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
