package xlog

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strconv"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
	logwriter "github.com/sirupsen/logrus/hooks/writer"

	"github.com/xiaoshicae/xvision/xconfig"
	"github.com/xiaoshicae/xvision/xhook"
	"github.com/xiaoshicae/xvision/xutil"
)

func init() {
	xhook.BeforeStart(initXLog, xhook.Order(2))
}

func initXLog() error {
	c, err := getConfig()
	if err != nil {
		return fmt.Errorf("XVision initXLog getConfig failed, err=[%v]", err)
	}
	xutil.InfoIfEnableDebug("XVision initXLog got config: %s", xutil.ToJsonString(c))
	return initXLogByConfig(c)
}

func initXLogByConfig(c *Config) error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		xutil.WarnIfEnableDebug("XVision initXLog load timezone [%s] failed, use Local, err=[%v]", c.Timezone, err)
		loc = time.Local
	}

	logrus.SetOutput(io.Discard)
	logrus.SetFormatter(timeFormatter{
		Formatter: &logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.999",
			CallerPrettyfier: func(*runtime.Frame) (string, string) {
				return "", ""
			},
		},
		Location: loc,
	})

	localIP, _ := xutil.GetLocalIp()
	logrus.AddHook(&xLogHook{
		ServerName:         xconfig.GetServerName(),
		IP:                 xutil.GetOrDefault(localIP, "0.0.0.0"),
		PidStr:             strconv.Itoa(os.Getpid()),
		Console:            c.Console,
		ConsoleFormatIsRaw: c.ConsoleFormatIsRaw,
		Writer:             os.Stdout,
	})

	if !c.DisableFile {
		w, err := newFileWriter(c)
		if err != nil {
			return err
		}
		xhook.BeforeStop(w.Close)
		logrus.AddHook(&logwriter.Hook{Writer: w, LogLevels: resolveLevels(c.Level)})
	}

	l, err := logrus.ParseLevel(c.Level)
	if err != nil {
		l = logrus.InfoLevel
	}
	logrus.SetLevel(l)
	return nil
}

func newFileWriter(c *Config) (io.WriteCloser, error) {
	if !xutil.DirExist(c.Path) {
		if err := os.MkdirAll(c.Path, os.ModePerm); err != nil {
			return nil, fmt.Errorf("XVision initXLog mkdir failed, path=[%s], err=[%v]", c.Path, err)
		}
	}
	logFilePath := path.Join(c.Path, c.Name+".log")
	rw, err := rotatelogs.New(
		logFilePath+".%Y%m%d",
		rotatelogs.WithLinkName(logFilePath),
		rotatelogs.WithMaxAge(xutil.ToDuration(c.MaxAge)),
		rotatelogs.WithRotationTime(xutil.ToDuration(c.RotateTime)),
	)
	if err != nil {
		return nil, fmt.Errorf("XVision initXLog rotatelogs.New failed, err=[%v]", err)
	}
	if c.Async {
		return newAsyncWriter(rw, 0), nil
	}
	return rw, nil
}

func getConfig() (*Config, error) {
	c := &Config{}
	if err := xconfig.UnmarshalConfig(XLogConfigKey, c); err != nil {
		return nil, err
	}
	return configMergeDefault(c), nil
}

var levelMapping = map[string][]logrus.Level{
	"debug": {logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel, logrus.InfoLevel, logrus.DebugLevel},
	"info":  {logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel, logrus.InfoLevel},
	"warn":  {logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel},
	"error": {logrus.FatalLevel, logrus.ErrorLevel},
	"fatal": {logrus.FatalLevel},
}

func resolveLevels(l string) []logrus.Level {
	if levels, ok := levelMapping[strings.ToLower(l)]; ok {
		return levels
	}
	return levelMapping["info"]
}
