package xutil

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

const (
	DebugKey = "SERVER_ENABLE_DEBUG"
)

var argKeyPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.-]*$`)

// EnableDebug 是否启用debug模式，用于框架启动过程中的日志记录
func EnableDebug() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(DebugKey))) {
	case "true", "1", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// GetConfigFromArgs 从启动命令获取指定参数，支持 --key value 与 --key=value
func GetConfigFromArgs(key string) (string, error) {
	if !argKeyPattern.MatchString(key) {
		return "", fmt.Errorf("key must match regexp: %s", argKeyPattern.String())
	}

	args := GetOsArgs()
	for i, arg := range args {
		arg = strings.TrimLeft(arg, "-")
		if arg == key {
			if i+1 == len(args) {
				return "", fmt.Errorf("arg not found, arg not set")
			}
			return args[i+1], nil
		}
		if strings.HasPrefix(arg, key+"=") {
			return arg[len(key)+1:], nil
		}
	}
	return "", fmt.Errorf("arg not found")
}

// GetOsArgs 获取启动命令参数（排除程序名）
func GetOsArgs() []string {
	if len(os.Args) <= 1 {
		return nil
	}
	return os.Args[1:]
}
