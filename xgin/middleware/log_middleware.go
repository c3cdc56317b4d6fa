package middleware

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xiaoshicae/xvision/xlog"
	"github.com/xiaoshicae/xvision/xutil"
)

const (
	FilteredValue = "***FILTERED***"

	// maxRequestBodySize 请求 body 读取上限 4KB，帧图片等大 body 只记录长度
	maxRequestBodySize = 4 * 1024

	// maxResponseBodyCapture 响应 body 捕获上限 4KB
	maxResponseBodyCapture = 4 * 1024
)

var sensitiveHeaders = []string{"Authorization", "X-Api-Key", "X-Auth-Token"}

type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseBodyWriter) Write(b []byte) (int, error) {
	if w.body.Len()+len(b) <= maxResponseBodyCapture {
		w.body.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

type LogOptions struct {
	SkipPaths []string
}

type LogOption func(*LogOptions)

// WithSkipPaths 设置忽略日志记录的路由
//   - "/metrics" 精确匹配
//   - "/ws/" 前缀匹配
func WithSkipPaths(paths ...string) LogOption {
	return func(o *LogOptions) {
		o.SkipPaths = append(o.SkipPaths, paths...)
	}
}

// LogMiddleware 请求日志中间件
func LogMiddleware(opts ...LogOption) gin.HandlerFunc {
	options := &LogOptions{}
	for _, opt := range opts {
		opt(options)
	}

	return func(c *gin.Context) {
		if shouldSkipLog(c.Request.URL.Path, options.SkipPaths) {
			c.Next()
			return
		}

		begin := time.Now()
		reqBody := getBodySnapshot(c.Request)
		rbw := &responseBodyWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = rbw

		c.Next()

		elapsed := time.Since(begin)
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		args := []any{
			c.Request.Method, route, c.Writer.Status(), formatElapsed(elapsed),
			xlog.KV("request_body", reqBody),
			xlog.KV("request_header", xutil.ToJsonString(filterSensitiveHeaders(c.Request.Header))),
			xlog.KV("request_clientIP", c.ClientIP()),
			xlog.KV("process_latency", elapsed.Milliseconds()),
		}
		if strings.Contains(c.Writer.Header().Get("Content-Type"), "application/json") && rbw.body.Len() > 0 {
			args = append(args, xlog.KV("response_body", rbw.body.String()))
		}
		xlog.Info(c.Request.Context(), "[XGin-LogMiddleware] %s %s status=%d cost=%s", args...)
	}
}

func shouldSkipLog(path string, skipPaths []string) bool {
	for _, skip := range skipPaths {
		if strings.HasSuffix(skip, "/") {
			if strings.HasPrefix(path, skip) {
				return true
			}
		} else if path == skip {
			return true
		}
	}
	return false
}

// getBodySnapshot 读取 body 前 4KB 做日志，原 body 重新包装供 handler 读取
func getBodySnapshot(req *http.Request) string {
	if req == nil || req.Body == nil || req.Body == http.NoBody {
		return ""
	}
	if ct := req.Header.Get("Content-Type"); strings.Contains(ct, "multipart/form-data") || strings.Contains(ct, "octet-stream") {
		return "[binary body omitted]"
	}
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return ""
	}
	req.Body = io.NopCloser(bytes.NewReader(data))
	if len(data) > maxRequestBodySize {
		return fmt.Sprintf("%s...(%d bytes)", string(data[:maxRequestBodySize]), len(data))
	}
	return strings.NewReplacer("\r\n", "", "\n", "").Replace(string(data))
}

func filterSensitiveHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ",")
	}
	for _, k := range sensitiveHeaders {
		ck := http.CanonicalHeaderKey(k)
		if _, ok := out[ck]; ok {
			out[ck] = FilteredValue
		}
	}
	return out
}

func formatElapsed(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.2fus", float64(d.Nanoseconds())/1000.0)
	}
	if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000.0)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
