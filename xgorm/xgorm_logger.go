package xgorm

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiaoshicae/xvision/xlog"
	"github.com/xiaoshicae/xvision/xutil"
)

// gormLogger 把 gorm 日志桥接到 xlog，级别跟随 logrus 全局级别
type gormLogger struct {
	logLevel      logger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(c *Config) *gormLogger {
	return &gormLogger{
		logLevel:      resolveLogLevel(logrus.GetLevel()),
		slowThreshold: xutil.ToDuration(c.SlowThreshold),
	}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.logLevel = level
	return &cp
}

func (l *gormLogger) Info(ctx context.Context, s string, i ...interface{}) {
	xlog.Info(ctx, s, i...)
}

func (l *gormLogger) Warn(ctx context.Context, s string, i ...interface{}) {
	xlog.Warn(ctx, s, i...)
}

func (l *gormLogger) Error(ctx context.Context, s string, i ...interface{}) {
	xlog.Error(ctx, s, i...)
}

// Trace 记录失败和慢查询，info 级别下记录全部 sql；未找到记录不算错误
func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	cost := time.Since(begin)
	switch {
	case err != nil && l.logLevel >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		xlog.Error(ctx, "latency: %vms, rowsAffected: %v, sql: %s, err: %v", cost.Milliseconds(), rows, sql, err)
	case l.slowThreshold > 0 && cost > l.slowThreshold && l.logLevel >= logger.Warn:
		sql, rows := fc()
		xlog.Warn(ctx, "SLOW SQL >= %v, latency: %vms, rowsAffected: %v, sql: %s", l.slowThreshold, cost.Milliseconds(), rows, sql)
	case l.logLevel >= logger.Info:
		sql, rows := fc()
		xlog.Debug(ctx, "latency: %vms, rowsAffected: %v, sql: %s", cost.Milliseconds(), rows, sql)
	}
}

func resolveLogLevel(l logrus.Level) logger.LogLevel {
	switch {
	case l >= logrus.InfoLevel:
		return logger.Info
	case l == logrus.WarnLevel:
		return logger.Warn
	default:
		return logger.Error
	}
}
