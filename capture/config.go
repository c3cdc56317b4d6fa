package capture

import (
	"os"

	"github.com/xiaoshicae/xvision/xconfig"
	"github.com/xiaoshicae/xvision/xutil"
)

const XCaptureConfigKey = "Capture"

// Config 截图与窗口管理配置
type Config struct {
	// Display X11 显示，为空时取环境变量 DISPLAY
	// optional default ""
	Display string `mapstructure:"Display"`

	// DisplayIndex 截图使用的显示器下标
	// optional default 0
	DisplayIndex int `mapstructure:"DisplayIndex"`

	// XdotoolBin xdotool 可执行文件
	// optional default "xdotool"
	XdotoolBin string `mapstructure:"XdotoolBin"`

	// WindowHints 目标窗口标题关键字，大小写不敏感
	// optional default ["diagram", "freecharts"]
	WindowHints []string `mapstructure:"WindowHints"`

	// MaxListedWindows 窗口信息中最多返回的窗口标题数
	// optional default 10
	MaxListedWindows int `mapstructure:"MaxListedWindows"`
}

func GetConfig() *Config {
	c := &Config{}
	_ = xconfig.UnmarshalConfig(XCaptureConfigKey, c)
	return configMergeDefault(c)
}

func configMergeDefault(c *Config) *Config {
	if c == nil {
		c = &Config{}
	}
	c.Display = xutil.GetOrDefault(c.Display, os.Getenv("DISPLAY"))
	c.XdotoolBin = xutil.GetOrDefault(c.XdotoolBin, "xdotool")
	if len(c.WindowHints) == 0 {
		c.WindowHints = []string{"diagram", "freecharts"}
	}
	if c.MaxListedWindows <= 0 {
		c.MaxListedWindows = 10
	}
	if c.DisplayIndex < 0 {
		c.DisplayIndex = 0
	}
	return c
}
