package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/xiaoshicae/xvision/action"
	"github.com/xiaoshicae/xvision/vision"
	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xutil"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf 按扩展名判断，.yaml/.yml 之外一律按 JSON
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadFile 读取并解析流水线文件，不做闭包校验
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerror.Config("pipeline", "load", "read pipeline file [%s] failed, err=[%v]", path, err)
	}
	return Parse(data, FormatOf(path))
}

// Parse 把节点名到节点的文档解析为 Config，$ 开头的键作为元数据保留
func Parse(data []byte, format Format) (*Config, error) {
	raw := map[string]any{}
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&raw)
	}
	if err != nil {
		return nil, xerror.Config("pipeline", "parse", "decode %s document failed, err=[%v]", format, err)
	}
	return FromMap(raw)
}

// FromMap 从已解码的文档构造 Config
func FromMap(raw map[string]any) (*Config, error) {
	cfg := NewConfig()
	for name, v := range raw {
		if strings.HasPrefix(name, "$") {
			cfg.Meta[name] = v
			continue
		}
		fields, ok := v.(map[string]any)
		if !ok {
			return nil, xerror.Config("pipeline", "parse", "node body must be an object").WithNode(name)
		}
		n, err := parseNode(name, fields)
		if err != nil {
			return nil, err
		}
		cfg.Nodes[name] = n
	}
	if len(cfg.Nodes) == 0 {
		return nil, xerror.Config("pipeline", "parse", "document has no node")
	}
	return cfg, nil
}

func parseNode(name string, f map[string]any) (*Node, error) {
	n := NewNode(name)
	fail := func(format string, args ...any) error {
		return xerror.Config("pipeline", "parse", format, args...).WithNode(name)
	}

	var err error
	for key, v := range f {
		switch key {
		case "recognition":
			n.Recognition.Kind, err = ParseRecognitionKind(cast.ToString(v))
		case "template":
			n.Recognition.Templates, err = toStringSlice(v)
		case "threshold":
			n.Recognition.Thresholds, err = toFloatSlice(v)
		case "multi_scale":
			n.Recognition.MultiScale, err = cast.ToBoolE(v)
		case "lower":
			n.Recognition.Lower, err = toTriple(v)
		case "upper":
			n.Recognition.Upper, err = toTriple(v)
		case "count":
			n.Recognition.Count, err = cast.ToIntE(v)
		case "connected":
			n.Recognition.Connected, err = cast.ToBoolE(v)
		case "method":
			n.Recognition.Method, err = toColorSpace(v)
		case "roi":
			n.Recognition.ROI, err = toRect(v, false)
		case "inverse":
			n.Recognition.Inverse, err = cast.ToBoolE(v)
		case "action":
			n.Action.Kind, err = action.ParseKind(cast.ToString(v))
		case "target":
			n.Action.Target, err = toTarget(v)
		case "target_offset":
			var off *vision.Rect
			if off, err = toRect(v, true); err == nil {
				n.Action.Offset = *off
			}
		case "begin":
			var t Target
			if t, err = toTarget(v); err == nil {
				n.Action.Begin = &t
			}
		case "end":
			var t Target
			if t, err = toTarget(v); err == nil {
				n.Action.End = &t
			}
		case "duration":
			n.Action.Duration, err = toMillis(v)
		case "input_text", "text":
			n.Action.Text, err = cast.ToStringE(v)
		case "next":
			n.Next, err = toStringSlice(v)
		case "pre_delay":
			n.PreDelay, err = toMillis(v)
		case "post_delay":
			n.PostDelay, err = toMillis(v)
		case "timeout":
			n.Timeout, err = toMillis(v)
		case "rate_limit", "interval":
			n.Interval, err = toMillis(v)
		case "enabled":
			n.Enabled, err = cast.ToBoolE(v)
		case "ignore_action_error":
			n.IgnoreActionError, err = cast.ToBoolE(v)
		default:
			xutil.WarnIfEnableDebug("XVision pipeline node [%s] ignore unknown key [%s]", name, key)
		}
		if err != nil {
			var xe *xerror.XError
			if errors.As(err, &xe) && xe.Kind == xerror.KindConfiguration {
				return nil, xe.WithNode(name)
			}
			return nil, fail("invalid value of [%s], err=[%v]", key, err)
		}
	}
	return n, nil
}

func toStringSlice(v any) ([]string, error) {
	if s, ok := v.(string); ok {
		return []string{s}, nil
	}
	return cast.ToStringSliceE(v)
}

func toFloatSlice(v any) ([]float64, error) {
	items, ok := v.([]any)
	if !ok {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, err
		}
		return []float64{f}, nil
	}
	out := make([]float64, 0, len(items))
	for _, it := range items {
		f, err := cast.ToFloat64E(it)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func toInts(v any) ([]int, error) {
	items, ok := v.([]any)
	if !ok {
		return cast.ToIntSliceE(v)
	}
	out := make([]int, 0, len(items))
	for _, it := range items {
		i, err := cast.ToIntE(it)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}

func toTriple(v any) ([3]int, error) {
	ints, err := toInts(v)
	if err != nil {
		return [3]int{}, err
	}
	if len(ints) != 3 {
		return [3]int{}, xerror.Config("pipeline", "parse", "color bound needs 3 channels, got %v", ints)
	}
	return [3]int{ints[0], ints[1], ints[2]}, nil
}

// toRect 支持 [x,y,w,h]，allowPoint 时也支持 [x,y]
func toRect(v any, allowPoint bool) (*vision.Rect, error) {
	ints, err := toInts(v)
	if err != nil {
		return nil, err
	}
	if allowPoint && len(ints) == 2 {
		return &vision.Rect{X: ints[0], Y: ints[1]}, nil
	}
	r, ok := vision.RectFromSlice(ints)
	if !ok {
		return nil, xerror.Config("pipeline", "parse", "rect needs [x,y,w,h], got %v", ints)
	}
	return &r, nil
}

// toTarget true 表示识别框，[x,y] / [x,y,w,h] 为固定目标
func toTarget(v any) (Target, error) {
	if b, ok := v.(bool); ok {
		if !b {
			return Target{}, xerror.Config("pipeline", "parse", "target can not be false")
		}
		return Target{}, nil
	}
	r, err := toRect(v, true)
	if err != nil {
		return Target{}, err
	}
	return Target{Fixed: r}, nil
}

func toMillis(v any) (time.Duration, error) {
	ms, err := cast.ToInt64E(v)
	if err != nil {
		return 0, err
	}
	if ms < 0 {
		return 0, xerror.Config("pipeline", "parse", "negative millisecond value %d", ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// toColorSpace 同时接受名称与 OpenCV 转换码：40=BGR2HSV, 4=BGR2RGB, 0=不转换
func toColorSpace(v any) (vision.ColorSpace, error) {
	if s, ok := v.(string); ok {
		return vision.ParseColorSpace(s)
	}
	code, err := cast.ToIntE(v)
	if err != nil {
		return "", err
	}
	switch code {
	case 40:
		return vision.ColorSpaceHSV, nil
	case 4:
		return vision.ColorSpaceRGB, nil
	case 0:
		return vision.ColorSpaceBGR, nil
	default:
		return "", xerror.Config("pipeline", "parse", "unsupported color conversion code %d", code)
	}
}
