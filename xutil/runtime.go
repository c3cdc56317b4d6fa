package xutil

import (
	"context"
	"net"
	"reflect"
	"runtime"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// GetTraceIDFromCtx 从ctx获取TraceID
func GetTraceIDFromCtx(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// GetSpanIDFromCtx 从ctx获取SpanID
func GetSpanIDFromCtx(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}

// GetFuncName 获取函数名称，传入 nil 或非函数类型时返回空字符串
func GetFuncName(fc any) string {
	_, _, name := GetFuncInfo(fc)
	return name
}

// GetFuncInfo 获取函数的源文件路径、行号和名称
func GetFuncInfo(fc any) (file string, line int, name string) {
	if fc == nil {
		return "", 0, ""
	}
	f := reflect.ValueOf(fc)
	if f.Kind() != reflect.Func || f.IsNil() {
		return "", 0, ""
	}
	fn := runtime.FuncForPC(f.Pointer())
	if fn == nil {
		return "", 0, ""
	}
	fullName := fn.Name()
	if idx := strings.LastIndex(fullName, "/"); idx != -1 {
		fullName = fullName[idx+1:]
	}
	_, name, found := strings.Cut(fullName, ".")
	if !found {
		return "", 0, ""
	}
	file, line = fn.FileLine(f.Pointer())
	return file, line, name
}

// GetLocalIp 获取本机ip，优先返回非回环的 IPv4 地址
func GetLocalIp() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	fallback := ""
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.To4() == nil {
			continue
		}
		if ipNet.IP.IsLoopback() {
			fallback = ipNet.IP.String()
			continue
		}
		return ipNet.IP.String(), nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "127.0.0.1", nil
}
