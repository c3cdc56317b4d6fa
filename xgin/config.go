package xgin

import "github.com/xiaoshicae/xvision/xconfig"

const (
	XGinConfigKey        = "XGin"
	XGinSwaggerConfigKey = "XGin.Swagger"
)

// Config 控制面 HTTP 服务配置
type Config struct {
	// Host 服务监听的host
	// optional default "127.0.0.1"
	Host string `mapstructure:"Host"`

	// Port 服务端口号
	// optional default 8000
	Port int `mapstructure:"Port"`

	// UseH2C 非 TLS 模式下是否启用 HTTP/2 Cleartext
	// optional default false
	UseH2C bool `mapstructure:"UseH2C"`

	// CertFile TLS 证书路径，与 KeyFile 需同时配置
	// optional default ""
	CertFile string `mapstructure:"CertFile"`

	// KeyFile TLS 私钥路径
	// optional default ""
	KeyFile string `mapstructure:"KeyFile"`

	// LogSkipPaths 日志中间件忽略的路由，以 / 结尾表示前缀匹配
	// optional default ["/metrics", "/ws/"]
	LogSkipPaths []string `mapstructure:"LogSkipPaths"`

	// EnableZHTranslations 参数校验错误是否翻译为中文
	// optional default true
	EnableZHTranslations *bool `mapstructure:"EnableZHTranslations"`

	// Swagger 接口文档相关配置
	// optional default nil
	Swagger *SwaggerConfig `mapstructure:"Swagger"`
}

// SwaggerConfig 接口文档相关配置
type SwaggerConfig struct {
	// Disable 是否关闭 /swagger 路由
	// optional default false
	Disable bool `mapstructure:"Disable"`

	// Host 提供api服务的host，为空时使用请求的host
	// optional default ""
	Host string `mapstructure:"Host"`

	// BasePath api公共前缀
	// optional default ""
	BasePath string `mapstructure:"BasePath"`

	// Title 接口文档的title
	// optional default "xvision"
	Title string `mapstructure:"Title"`

	// Description 接口文档的描述信息
	// optional default ""
	Description string `mapstructure:"Description"`

	// Schemes api支持的协议
	// optional default ["http", "https"]
	Schemes []string `mapstructure:"Schemes"`
}

// GetConfig 获取 XGin 配置
func GetConfig() *Config {
	c := &Config{}
	_ = xconfig.UnmarshalConfig(XGinConfigKey, c)
	return configMergeDefault(c)
}

// GetSwaggerConfig 获取接口文档配置
func GetSwaggerConfig() *SwaggerConfig {
	c := &SwaggerConfig{}
	_ = xconfig.UnmarshalConfig(XGinSwaggerConfigKey, c)
	return swaggerConfigMergeDefault(c)
}

func configMergeDefault(c *Config) *Config {
	if c == nil {
		c = &Config{}
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port <= 0 {
		c.Port = 8000
	}
	if c.LogSkipPaths == nil {
		c.LogSkipPaths = []string{"/metrics", "/ws/"}
	}
	if c.EnableZHTranslations == nil {
		enable := true
		c.EnableZHTranslations = &enable
	}
	if c.Swagger != nil {
		c.Swagger = swaggerConfigMergeDefault(c.Swagger)
	}
	return c
}

func swaggerConfigMergeDefault(c *SwaggerConfig) *SwaggerConfig {
	if c == nil {
		c = &SwaggerConfig{}
	}
	if c.Title == "" {
		c.Title = "xvision"
	}
	if len(c.Schemes) == 0 {
		c.Schemes = []string{"http", "https"}
	}
	return c
}
