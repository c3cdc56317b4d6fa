package stress

import (
	"github.com/xiaoshicae/xvision/vision"
	"github.com/xiaoshicae/xvision/xconfig"
	"github.com/xiaoshicae/xvision/xutil"
)

const (
	XStressConfigKey = "Stress"

	MinIterations = 1
	MaxIterations = 100
)

// Config 压力测试配置
type Config struct {
	// Spread 未指定画布时，随机点在屏幕中心 ±Spread 范围内
	// optional default 200
	Spread int `mapstructure:"Spread"`

	// Canvas 画布区域 [x, y, w, h]（屏幕坐标），设置后随机点取 1..100 网格并缩放到画布
	// optional default nil
	Canvas []int `mapstructure:"Canvas"`

	// MoveDelay 每次拖拽前的等待
	// optional default "200ms"
	MoveDelay string `mapstructure:"MoveDelay"`

	// SwipeDuration 拖拽时长
	// optional default "300ms"
	SwipeDuration string `mapstructure:"SwipeDuration"`

	// SettleDelay 每次迭代后的等待，让目标程序稳定
	// optional default "200ms"
	SettleDelay string `mapstructure:"SettleDelay"`

	// VerifyEdges 每次拖拽后检查画面边缘比例作为后置校验
	// optional default false
	VerifyEdges bool `mapstructure:"VerifyEdges"`
}

func GetConfig() *Config {
	c := &Config{}
	_ = xconfig.UnmarshalConfig(XStressConfigKey, c)
	return configMergeDefault(c)
}

func configMergeDefault(c *Config) *Config {
	if c == nil {
		c = &Config{}
	}
	if c.Spread <= 0 {
		c.Spread = 200
	}
	c.MoveDelay = xutil.GetOrDefault(c.MoveDelay, "200ms")
	c.SwipeDuration = xutil.GetOrDefault(c.SwipeDuration, "300ms")
	c.SettleDelay = xutil.GetOrDefault(c.SettleDelay, "200ms")
	return c
}

func (c *Config) canvas() *vision.Rect {
	r, ok := vision.RectFromSlice(c.Canvas)
	if !ok || r.Empty() {
		return nil
	}
	return &r
}
