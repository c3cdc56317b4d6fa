package xtrace

import "github.com/xiaoshicae/xvision/xutil"

const (
	XTraceConfigKey = "XTrace"
	XTraceEnableKey = XTraceConfigKey + ".Enable"
)

type Config struct {
	// Enable Trace是否开启，只有明确配置 false 才关闭
	// optional default true
	Enable *bool `mapstructure:"Enable"`

	// Console span 是否在控制台打印
	// optional default false
	Console bool `mapstructure:"Console"`

	// B3 是否额外支持 B3 header 的透传
	// optional default false
	B3 bool `mapstructure:"B3"`

	// ForwardHeaders 需要在链路中透传的自定义 HTTP Header 列表，如 X-Session-Id
	// optional default nil
	ForwardHeaders []string `mapstructure:"ForwardHeaders"`
}

func configMergeDefault(c *Config) *Config {
	if c == nil {
		c = &Config{}
	}
	if c.Enable == nil {
		c.Enable = xutil.ToPtr(true)
	}
	return c
}
