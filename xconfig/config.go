package xconfig

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/viper"

	"github.com/xiaoshicae/xvision/xutil"
)

const (
	ServerConfigKey = "Server"

	serverNameConfigKey     = ServerConfigKey + ".Name"
	serverVersionConfigKey  = ServerConfigKey + ".Version"
	profilesActiveConfigKey = ServerConfigKey + ".Profiles.Active"

	defaultServerName    = "xvision"
	defaultServerVersion = "v0.0.1"
)

type Server struct {
	// Name 服务名
	// optional default "xvision"
	Name string `mapstructure:"Name"`

	// Version 服务版本号
	// optional default "v0.0.1"
	Version string `mapstructure:"Version"`

	// Profiles 环境相关配置
	// optional default nil
	Profiles *Profiles `mapstructure:"Profiles"`
}

type Profiles struct {
	// Active 指定启用的环境，对应 application-<Active>.yml
	// required
	Active string `mapstructure:"Active"`
}

// UnmarshalConfig 将 key 对应的配置解析到 conf，key 不存在时 conf 保持不变
func UnmarshalConfig(key string, conf any) error {
	if key == "" {
		return fmt.Errorf("param key is empty")
	}
	if conf == nil || reflect.TypeOf(conf).Kind() != reflect.Ptr {
		return fmt.Errorf("param conf must be a non-nil ptr")
	}
	return getViperConfig().UnmarshalKey(key, conf)
}

func GetConfig(key string) any {
	return getViperConfig().Get(key)
}

func ContainKey(key string) bool {
	return getViperConfig().IsSet(key)
}

func GetString(key string) string {
	return getViperConfig().GetString(key)
}

func GetBool(key string) bool {
	return getViperConfig().GetBool(key)
}

func GetInt(key string) int {
	return getViperConfig().GetInt(key)
}

func GetFloat64(key string) float64 {
	return getViperConfig().GetFloat64(key)
}

func GetDuration(key string) time.Duration {
	return xutil.ToDuration(getViperConfig().GetString(key))
}

func GetStringSlice(key string) []string {
	return getViperConfig().GetStringSlice(key)
}

// GetServerName 获取Server的Name，如果没有配置则为默认值
func GetServerName() string {
	return xutil.GetOrDefault(getViperConfig().GetString(serverNameConfigKey), defaultServerName)
}

// GetServerVersion 获取Server的Version，如果没有配置则为默认值
func GetServerVersion() string {
	return xutil.GetOrDefault(getViperConfig().GetString(serverVersionConfigKey), defaultServerVersion)
}

func getViperConfig() *viper.Viper {
	vipMu.RLock()
	defer vipMu.RUnlock()
	if vip == nil {
		return emptyViper
	}
	return vip
}
