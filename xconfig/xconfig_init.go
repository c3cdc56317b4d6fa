package xconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/xiaoshicae/xvision/xhook"
	"github.com/xiaoshicae/xvision/xutil"
)

const (
	configLocationArgKey = "server.config.location"
	configLocationEnvKey = "SERVER_CONFIG_LOCATION"
	profilesActiveArgKey = "server.profiles.active"
	profilesActiveEnvKey = "SERVER_PROFILES_ACTIVE"

	dotEnvFileName = ".env"
)

var (
	vip        *viper.Viper
	vipMu      sync.RWMutex
	emptyViper = viper.New()

	// explicitLocation 由命令行 flag 显式指定的配置路径，优先级最高
	explicitLocation string

	envPlaceholderRegex = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

	// configLocationPaths 配置文件搜索路径列表，按优先级排序
	configLocationPaths = []string{
		"./application.yml",
		"./application.yaml",
		"./conf/application.yml",
		"./conf/application.yaml",
		"./config/application.yml",
		"./config/application.yaml",
	}
)

func init() {
	xhook.BeforeStart(initXConfig, xhook.Order(1))
}

// SetConfigLocation 显式指定配置文件路径，需在 xserver 启动前调用
func SetConfigLocation(location string) {
	explicitLocation = location
}

// Load 加载指定位置的配置文件，location 为空时使用默认配置
func Load(location string) error {
	if location == "" {
		vipMu.Lock()
		vip = nil
		vipMu.Unlock()
		return nil
	}

	if err := loadDotEnvIfExist(location); err != nil {
		return fmt.Errorf("XVision xconfig load .env failed, err=[%v]", err)
	}

	vp, err := parseConfig(location)
	if err != nil {
		return fmt.Errorf("XVision xconfig parse config failed, err=[%v]", err)
	}

	if xutil.EnableDebug() {
		fmt.Printf("\n********** XVision load config **********\n%s\n*****************************************\n\n", xutil.ToJsonStringIndent(vp.AllSettings()))
	}

	vipMu.Lock()
	vip = vp
	vipMu.Unlock()
	return nil
}

func initXConfig() error {
	location := detectConfigLocation()
	if location == "" {
		xutil.WarnIfEnableDebug("XVision initXConfig config file location not found, use default config")
	}
	return Load(location)
}

func detectConfigLocation() string {
	if explicitLocation != "" {
		return explicitLocation
	}
	if loc, _ := xutil.GetConfigFromArgs(configLocationArgKey); loc != "" {
		xutil.InfoIfEnableDebug("XVision detect config location [%s] from arg", loc)
		return loc
	}
	if loc := os.Getenv(configLocationEnvKey); loc != "" {
		xutil.InfoIfEnableDebug("XVision detect config location [%s] from env", loc)
		return loc
	}
	for _, loc := range configLocationPaths {
		if xutil.FileExist(loc) {
			xutil.InfoIfEnableDebug("XVision detect config location [%s] from current dir", loc)
			return loc
		}
	}
	return ""
}

func loadDotEnvIfExist(location string) error {
	dotEnv := filepath.Join(filepath.Dir(location), dotEnvFileName)
	if xutil.FileExist(dotEnv) {
		return godotenv.Load(dotEnv)
	}
	return nil
}

func parseConfig(location string) (*viper.Viper, error) {
	vp := viper.New()
	vp.SetConfigFile(location)
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed, location=[%s], err=[%v]", location, err)
	}

	if pa := detectProfilesActive(vp); pa != "" {
		profileLocation := toProfilesActiveConfigLocation(location, pa)
		pvp := viper.New()
		pvp.SetConfigFile(profileLocation)
		if err := pvp.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read profile config failed, location=[%s], err=[%v]", profileLocation, err)
		}
		if err := vp.MergeConfigMap(pvp.AllSettings()); err != nil {
			return nil, fmt.Errorf("merge profile config failed, err=[%v]", err)
		}
	}

	expandEnvPlaceholders(vp)
	return vp, nil
}

func detectProfilesActive(vp *viper.Viper) string {
	if pa, _ := xutil.GetConfigFromArgs(profilesActiveArgKey); pa != "" {
		return pa
	}
	if pa := os.Getenv(profilesActiveEnvKey); pa != "" {
		return pa
	}
	return vp.GetString(profilesActiveConfigKey)
}

// toProfilesActiveConfigLocation conf/application.yml + dev => conf/application-dev.yml
func toProfilesActiveConfigLocation(location, pa string) string {
	ext := filepath.Ext(location)
	return strings.TrimSuffix(location, ext) + "-" + pa + ext
}

// expandEnvPlaceholders 展开配置中的 ${VAR} 或 ${VAR:-default} 占位符
func expandEnvPlaceholders(vp *viper.Viper) {
	for _, key := range vp.AllKeys() {
		raw, ok := vp.Get(key).(string)
		if !ok || !strings.Contains(raw, "${") {
			continue
		}
		expanded := envPlaceholderRegex.ReplaceAllStringFunc(raw, func(match string) string {
			m := envPlaceholderRegex.FindStringSubmatch(match)
			if envVal := os.Getenv(m[1]); envVal != "" {
				return envVal
			}
			return m[2]
		})
		vp.Set(key, expanded)
	}
}
