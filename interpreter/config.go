package interpreter

import (
	"os"

	"github.com/xiaoshicae/xvision/xconfig"
	"github.com/xiaoshicae/xvision/xutil"
)

const XInterpreterConfigKey = "Interpreter"

// Config OpenAI 兼容的大模型接口配置（默认讯飞星火）
type Config struct {
	// APIKey 为空时取环境变量 SPARK_API_KEY
	// optional default ""
	APIKey string `mapstructure:"APIKey"`

	// BaseURL 接口地址，请求 {BaseURL}/chat/completions
	// optional default "http://maas-api.cn-huabei-1.xf-yun.com/v1"
	BaseURL string `mapstructure:"BaseURL"`

	// Model 模型名
	// optional default "generalv3.5"
	Model string `mapstructure:"Model"`

	// Temperature 采样温度
	// optional default 0.3
	Temperature float64 `mapstructure:"Temperature"`

	// MaxTokens 生成流水线时的最大 token 数
	// optional default 2000
	MaxTokens int `mapstructure:"MaxTokens"`

	// CommandMaxTokens 解析单条指令时的最大 token 数
	// optional default 500
	CommandMaxTokens int `mapstructure:"CommandMaxTokens"`

	// Timeout 单次请求超时
	// optional default "60s"
	Timeout string `mapstructure:"Timeout"`

	// RetryCount 失败重试次数
	// optional default 2
	RetryCount *int `mapstructure:"RetryCount"`
}

func GetConfig() *Config {
	c := &Config{}
	_ = xconfig.UnmarshalConfig(XInterpreterConfigKey, c)
	return configMergeDefault(c)
}

func configMergeDefault(c *Config) *Config {
	if c == nil {
		c = &Config{}
	}
	c.APIKey = xutil.GetOrDefault(c.APIKey, os.Getenv("SPARK_API_KEY"))
	c.BaseURL = xutil.GetOrDefault(c.BaseURL, xutil.GetOrDefault(os.Getenv("SPARK_BASE_URL"), "http://maas-api.cn-huabei-1.xf-yun.com/v1"))
	c.Model = xutil.GetOrDefault(c.Model, xutil.GetOrDefault(os.Getenv("SPARK_MODEL"), "generalv3.5"))
	if c.Temperature <= 0 {
		c.Temperature = 0.3
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2000
	}
	if c.CommandMaxTokens <= 0 {
		c.CommandMaxTokens = 500
	}
	c.Timeout = xutil.GetOrDefault(c.Timeout, "60s")
	if c.RetryCount == nil {
		c.RetryCount = xutil.ToPtr(2)
	}
	return c
}
