package xhttp

const XHttpConfigKey = "XHttp"

type Config struct {
	// Timeout HTTP 请求超时时间
	// optional default "60s"
	Timeout string `mapstructure:"Timeout"`

	// DialTimeout 建立 TCP 连接超时时间
	// optional default "10s"
	DialTimeout string `mapstructure:"DialTimeout"`

	// MaxIdleConnsPerHost 每个 host 最大空闲连接数
	// optional default 10
	MaxIdleConnsPerHost int `mapstructure:"MaxIdleConnsPerHost"`

	// IdleConnTimeout 空闲连接超时时间
	// optional default "90s"
	IdleConnTimeout string `mapstructure:"IdleConnTimeout"`

	// RetryCount 重试次数
	// optional default 0 (不重试)
	RetryCount int `mapstructure:"RetryCount"`

	// RetryWaitTime 重试等待时间
	// optional default "500ms"
	RetryWaitTime string `mapstructure:"RetryWaitTime"`
}

func configMergeDefault(c *Config) *Config {
	if c == nil {
		c = &Config{}
	}
	if c.Timeout == "" {
		c.Timeout = "60s"
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "10s"
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = 10
	}
	if c.IdleConnTimeout == "" {
		c.IdleConnTimeout = "90s"
	}
	if c.RetryWaitTime == "" {
		c.RetryWaitTime = "500ms"
	}
	return c
}
