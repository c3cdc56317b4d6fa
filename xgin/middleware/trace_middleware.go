package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/xiaoshicae/xvision/xlog"
)

const (
	tracerName      = "github.com/xiaoshicae/xvision/xgin"
	TraceIdHeader   = "X-Trace-Id"
	SessionIdHeader = "X-Session-Id"
)

// GinXTraceMiddleware 为每个请求创建 server span，并把 X-Session-Id 注入日志上下文
func GinXTraceMiddleware() gin.HandlerFunc {
	propagator := otel.GetTextMapPropagator()
	return func(c *gin.Context) {
		fullPath := c.FullPath()
		if fullPath == "" {
			fullPath = c.Request.URL.Path
		}

		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := otel.Tracer(tracerName).Start(ctx, fmt.Sprintf("%s %s", c.Request.Method, fullPath),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("http.route", fullPath)),
		)
		defer span.End()

		if sid := c.GetHeader(SessionIdHeader); sid != "" {
			ctx = xlog.CtxWithKV(ctx, map[string]any{"session_id": sid})
			span.SetAttributes(attribute.String("xvision.session_id", sid))
		}
		c.Request = c.Request.WithContext(ctx)

		// 必须在 c.Next() 之前写 header
		if span.SpanContext().IsValid() {
			c.Header(TraceIdHeader, span.SpanContext().TraceID().String())
		}

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		if len(c.Errors) > 0 {
			span.SetAttributes(attribute.String("gin.errors", c.Errors.String()))
		}
	}
}
