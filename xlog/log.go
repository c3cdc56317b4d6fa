package xlog

import (
	"context"

	"github.com/sirupsen/logrus"
)

type ctxKVKey struct{}

type Option func(*options)

type options struct {
	KV map[string]any
}

// KV 附加结构化字段，作为 args 的最后若干项传入
func KV(k string, v any) Option {
	return func(o *options) {
		o.KV[k] = v
	}
}

func Error(ctx context.Context, msg string, args ...any) {
	RawLog(ctx, logrus.ErrorLevel, msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	RawLog(ctx, logrus.WarnLevel, msg, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	RawLog(ctx, logrus.InfoLevel, msg, args...)
}

func Debug(ctx context.Context, msg string, args ...any) {
	RawLog(ctx, logrus.DebugLevel, msg, args...)
}

func RawLog(ctx context.Context, level logrus.Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !logrus.IsLevelEnabled(level) {
		return
	}

	logArgs := make([]any, 0, len(args))
	var fields logrus.Fields
	for _, arg := range args {
		opt, ok := arg.(Option)
		if !ok {
			logArgs = append(logArgs, arg)
			continue
		}
		o := &options{KV: map[string]any{}}
		opt(o)
		if fields == nil {
			fields = logrus.Fields{}
		}
		for k, v := range o.KV {
			fields[k] = v
		}
	}

	entry := logrus.WithContext(ctx)
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	if len(logArgs) == 0 {
		entry.Log(level, msg)
		return
	}
	entry.Logf(level, msg, logArgs...)
}

// CtxWithKV 向ctx注入kv，记录日志时会一并输出；每次返回新的 map 副本
func CtxWithKV(ctx context.Context, kvs map[string]any) context.Context {
	old := kvFromCtx(ctx)
	merged := make(map[string]any, len(old)+len(kvs))
	for k, v := range old {
		merged[k] = v
	}
	for k, v := range kvs {
		merged[k] = v
	}
	return context.WithValue(ctx, ctxKVKey{}, merged)
}

func kvFromCtx(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	kvs, _ := ctx.Value(ctxKVKey{}).(map[string]any)
	return kvs
}
