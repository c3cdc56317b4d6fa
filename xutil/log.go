package xutil

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// 框架内部 debug 日志，只打印在屏幕上，由 SERVER_ENABLE_DEBUG 开启

var (
	debugLogger = newDebugLogger()

	callerSkipRegList = []*regexp.Regexp{
		regexp.MustCompile(`logrus(|@v.*)/(hooks|entry|logger|exported)\.go`),
		regexp.MustCompile(`gorm(|@v.*)/(callbacks|finisher_api)\.go`),
		regexp.MustCompile(`/xutil/log\.go$`),
		regexp.MustCompile(`asm_amd64\.s`),
	}
)

const (
	maximumCallerDepth = 25
	minimumCallerDepth = 5
)

func ErrorIfEnableDebug(msg string, args ...any) {
	LogIfEnableDebug(logrus.ErrorLevel, msg, args...)
}

func InfoIfEnableDebug(msg string, args ...any) {
	LogIfEnableDebug(logrus.InfoLevel, msg, args...)
}

func WarnIfEnableDebug(msg string, args ...any) {
	LogIfEnableDebug(logrus.WarnLevel, msg, args...)
}

func LogIfEnableDebug(level logrus.Level, msg string, args ...any) {
	if EnableDebug() {
		debugLogger.Logf(level, msg, args...)
	}
}

// GetLogCaller 获取日志真实调用方，跳过 logrus/gorm 内部及 suffixToIgnore 指定的文件
func GetLogCaller(callDepth int, suffixToIgnore []string) (frame *runtime.Frame) {
	pcs := make([]uintptr, maximumCallerDepth)
	depth := runtime.Callers(minimumCallerDepth+callDepth, pcs)
	frames := runtime.CallersFrames(pcs[:depth])
OUTER:
	for f, hasMore := frames.Next(); hasMore; f, hasMore = frames.Next() {
		frame = &f
		for _, s := range suffixToIgnore {
			if strings.HasSuffix(f.File, s) {
				continue OUTER
			}
		}
		for _, r := range callerSkipRegList {
			if r.MatchString(f.File) {
				continue OUTER
			}
		}
		break
	}
	return
}

func callerPretty(_ *runtime.Frame) (string, string) {
	frame := GetLogCaller(0, nil)
	if frame == nil {
		return "", " \x1b[34m???\x1b[0m"
	}
	return "", fmt.Sprintf(" \x1b[34m%s:%d\x1b[0m", path.Base(frame.File), frame.Line)
}

func newDebugLogger() *logrus.Logger {
	l := logrus.New()
	l.Formatter = &logrus.TextFormatter{
		ForceColors:      true,
		FullTimestamp:    true,
		TimestampFormat:  "2006-01-02 15:04:05.999",
		CallerPrettyfier: callerPretty,
	}
	l.SetReportCaller(true)
	l.SetLevel(logrus.InfoLevel)
	l.SetOutput(os.Stdout)
	return l
}
