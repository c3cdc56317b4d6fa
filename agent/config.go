package agent

import (
	"github.com/xiaoshicae/xvision/xconfig"
	"github.com/xiaoshicae/xvision/xutil"
)

const XAgentConfigKey = "Agent"

// Config 引擎门面配置
type Config struct {
	// ScanDirs 未指定目录时扫描流水线文件的目录
	// optional default ["./pipelines"]
	ScanDirs []string `mapstructure:"ScanDirs"`

	// OutputDir AI 生成的流水线文件保存目录
	// optional default "./log"
	OutputDir string `mapstructure:"OutputDir"`

	// ResourceDir 单次找图、找图点击等操作的模板目录
	// optional default ""
	ResourceDir string `mapstructure:"ResourceDir"`

	// DefaultTimeout 等待模板的默认超时
	// optional default "10s"
	DefaultTimeout string `mapstructure:"DefaultTimeout"`

	// DefaultInterval 等待模板的默认检测间隔
	// optional default "500ms"
	DefaultInterval string `mapstructure:"DefaultInterval"`

	// FrameInterval websocket 推帧间隔
	// optional default "1s"
	FrameInterval string `mapstructure:"FrameInterval"`
}

func GetConfig() *Config {
	c := &Config{}
	_ = xconfig.UnmarshalConfig(XAgentConfigKey, c)
	return configMergeDefault(c)
}

func configMergeDefault(c *Config) *Config {
	if c == nil {
		c = &Config{}
	}
	if len(c.ScanDirs) == 0 {
		c.ScanDirs = []string{"./pipelines"}
	}
	c.OutputDir = xutil.GetOrDefault(c.OutputDir, "./log")
	c.DefaultTimeout = xutil.GetOrDefault(c.DefaultTimeout, "10s")
	c.DefaultInterval = xutil.GetOrDefault(c.DefaultInterval, "500ms")
	c.FrameInterval = xutil.GetOrDefault(c.FrameInterval, "1s")
	return c
}
