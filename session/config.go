package session

import (
	"github.com/xiaoshicae/xvision/xconfig"
	"github.com/xiaoshicae/xvision/xutil"
)

const XSessionConfigKey = "Session"

// Config 被测程序会话配置
type Config struct {
	// TargetPath 被测程序可执行文件，相对路径以工作目录为基准
	// required
	TargetPath string `mapstructure:"TargetPath"`

	// Args 启动参数
	// optional default []
	Args []string `mapstructure:"Args"`

	// WorkDir 被测程序工作目录，为空时使用可执行文件所在目录
	// optional default ""
	WorkDir string `mapstructure:"WorkDir"`

	// StartupWait 启动后等待窗口就绪的时间
	// optional default "2s"
	StartupWait string `mapstructure:"StartupWait"`

	// StopTimeout 发送 SIGTERM 后等待退出的时间，超时则强杀
	// optional default "5s"
	StopTimeout string `mapstructure:"StopTimeout"`
}

func GetConfig() *Config {
	c := &Config{}
	_ = xconfig.UnmarshalConfig(XSessionConfigKey, c)
	return configMergeDefault(c)
}

func configMergeDefault(c *Config) *Config {
	if c == nil {
		c = &Config{}
	}
	c.StartupWait = xutil.GetOrDefault(c.StartupWait, "2s")
	c.StopTimeout = xutil.GetOrDefault(c.StopTimeout, "5s")
	return c
}
