package pipeline

import (
	"github.com/xiaoshicae/xvision/xconfig"
)

const EngineConfigKey = "Engine"

// EngineConfig 执行器配置
type EngineConfig struct {
	// RunBudget 单次运行的全局时间预算，保证含环的图也能终止
	// optional default "300s"
	RunBudget string `mapstructure:"RunBudget"`

	// MaxSteps 单次运行最多经过的节点数，轮询不计入，零时延的环在假时钟下也能终止
	// optional default 10000
	MaxSteps int `mapstructure:"MaxSteps"`

	// ResourceDir 未指定资源目录时模板路径的解析基准
	// optional default ""
	ResourceDir string `mapstructure:"ResourceDir"`

	// DisableMonitor 关闭节点/运行级别的监控回调
	// optional default false
	DisableMonitor bool `mapstructure:"DisableMonitor"`
}

func GetEngineConfig() *EngineConfig {
	c := &EngineConfig{}
	_ = xconfig.UnmarshalConfig(EngineConfigKey, c)
	return engineConfigMergeDefault(c)
}

func engineConfigMergeDefault(c *EngineConfig) *EngineConfig {
	if c == nil {
		c = &EngineConfig{}
	}
	if c.RunBudget == "" {
		c.RunBudget = "300s"
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = 10000
	}
	return c
}
