package xtrace

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/xiaoshicae/xvision/xconfig"
)

const tracerName = "github.com/xiaoshicae/xvision"

// EnableTrace 需要明确配置 XTrace.Enable=false 才会关闭
func EnableTrace() bool {
	return strings.ToLower(strings.TrimSpace(xconfig.GetString(XTraceEnableKey))) != "false"
}

// Start 使用全局 TracerProvider 创建 span
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, oteltrace.WithAttributes(attrs...))
}

// End 结束 span，err 非空时记录错误状态
func End(span oteltrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
