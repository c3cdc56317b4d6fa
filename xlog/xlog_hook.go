package xlog

import (
	"context"
	"fmt"
	"io"
	"path"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xiaoshicae/xvision/xutil"
)

const (
	colorRed    = 31
	colorYellow = 33
	colorBlue   = 36
	colorGray   = 37
)

var findFrameIgnoreFileNames = []string{
	"/xlog/log.go",
	"/xlog/xlog_hook.go",
}

// xLogHook 补充公共字段，并按需打印到控制台
type xLogHook struct {
	IP                 string
	ServerName         string
	PidStr             string
	Console            bool
	ConsoleFormatIsRaw bool
	Writer             io.Writer
}

func (m *xLogHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (m *xLogHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["servername"]; !ok {
		entry.Data["servername"] = m.ServerName
	}
	entry.Data["ip"] = m.IP
	entry.Data["pid"] = m.PidStr

	caller := entry.Caller
	if caller == nil {
		caller = xutil.GetLogCaller(0, findFrameIgnoreFileNames)
	}
	if caller != nil {
		entry.Data["filename"] = path.Base(caller.File)
		entry.Data["lineid"] = strconv.Itoa(caller.Line)
	}

	entry.Data["traceid"] = xutil.GetTraceIDFromCtx(entry.Context)
	entry.Data["spanid"] = xutil.GetSpanIDFromCtx(entry.Context)
	for k, v := range kvFromCtx(entry.Context) {
		entry.Data[k] = v
	}

	if m.Console {
		return m.consolePrint(entry, caller)
	}
	return nil
}

func (m *xLogHook) consolePrint(entry *logrus.Entry, caller *runtime.Frame) error {
	if m.ConsoleFormatIsRaw {
		line, err := entry.Bytes()
		if err != nil {
			return err
		}
		_, err = m.Writer.Write(line)
		return err
	}

	fileName := "???"
	if caller != nil {
		fileName = fmt.Sprintf("%s:%d", path.Base(caller.File), caller.Line)
	}
	msg := fmt.Sprintf("\x1b[%dm%s\x1b[0m[%s] \x1b[34m%s\x1b[0m %s %s\n",
		levelColor(entry.Level),
		strings.ToUpper(entry.Level.String()),
		entry.Time.Format("2006-01-02 15:04:05.999"),
		fileName,
		entry.Data["traceid"],
		entry.Message,
	)
	if stack, ok := entry.Data["panic_stack"]; ok {
		msg += fmt.Sprintf("%s\n", stack)
	}
	_, err := io.WriteString(m.Writer, msg)
	return err
}

func levelColor(l logrus.Level) int {
	switch l {
	case logrus.DebugLevel, logrus.TraceLevel:
		return colorGray
	case logrus.WarnLevel:
		return colorYellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return colorRed
	default:
		return colorBlue
	}
}

// timeFormatter 按配置时区输出时间，拷贝 entry 避免多 writer 并发修改
type timeFormatter struct {
	logrus.Formatter
	Location *time.Location
}

func (t timeFormatter) Format(e *logrus.Entry) ([]byte, error) {
	cp := *e
	if cp.Context == nil {
		cp.Context = context.Background()
	}
	if t.Location != nil {
		cp.Time = cp.Time.In(t.Location)
	}
	return t.Formatter.Format(&cp)
}
