package logging

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm/logger"
)

// GormLogger 是一个自定义的GORM日志器，它实现了 `gorm.io/gorm/logger.Interface` 接口，
// 从而允许GORM将数据库操作日志输出到统一的slog日志系统中。
type GormLogger struct {
	logger        *slog.Logger  // 用于输出日志的slog实例
	SlowThreshold time.Duration // 慢查询阈值，超过此阈值的SQL查询将被记录为警告
}

// NewGormLogger 创建一个新的GormLogger实例。
func NewGormLogger(l *Logger, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{
		logger:        l.Logger,
		SlowThreshold: slowThreshold,
	}
}

// LogMode 实现 logger.Interface。GORM 的级别控制交由 slog 统一处理，直接返回自身。
func (l *GormLogger) LogMode(logger.LogLevel) logger.Interface {
	return l
}

// Info 实现 logger.Interface。
func (l *GormLogger) Info(ctx context.Context, msg string, args ...any) {
	l.logger.InfoContext(ctx, msg, "args", args)
}

// Warn 实现 logger.Interface。
func (l *GormLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.logger.WarnContext(ctx, msg, "args", args)
}

// Error 实现 logger.Interface。
func (l *GormLogger) Error(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, msg, "args", args)
}

// Trace 实现 logger.Interface，记录SQL执行情况与慢查询。
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, logger.ErrRecordNotFound):
		l.logger.ErrorContext(ctx, "sql error", "sql", sql, "rows", rows, "elapsed", elapsed, "error", err)
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold:
		l.logger.WarnContext(ctx, "slow sql", "sql", sql, "rows", rows, "elapsed", elapsed)
	default:
		l.logger.DebugContext(ctx, "sql trace", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
