package xutil

import (
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// ToPtr 获取指针
func ToPtr[T any](t T) *T {
	return &t
}

// GetOrDefault 如果v为0值，则返回defaultV
func GetOrDefault[T any](v T, defaultV T) T {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.IsZero() {
		return defaultV
	}
	return v
}

// ToDuration 兼容d类型时长，如"1d"、"1d2h"
// 纯数字按毫秒处理，与 pipeline 文档中 timeout/pre_delay 等字段的单位保持一致
func ToDuration(i any) time.Duration {
	switch v := i.(type) {
	case nil:
		return 0
	case string:
		return strToDuration(v)
	case *string:
		if v == nil {
			return 0
		}
		return strToDuration(*v)
	case time.Duration:
		return v
	case int, int32, int64, uint, uint32, uint64, float32, float64:
		return time.Duration(cast.ToFloat64(v) * float64(time.Millisecond))
	}
	return cast.ToDuration(i)
}

func strToDuration(duration string) time.Duration {
	duration = strings.TrimSpace(duration)
	if duration == "" {
		return 0
	}
	if ms, err := cast.ToFloat64E(duration); err == nil {
		return time.Duration(ms * float64(time.Millisecond))
	}
	if strings.Contains(duration, "d") {
		day, left, _ := strings.Cut(duration, "d")
		dayDuration, _ := cast.ToIntE(day)
		return time.Duration(dayDuration)*24*time.Hour + cast.ToDuration(left)
	}
	return cast.ToDuration(duration)
}

// ToMillis 时长转毫秒
func ToMillis(d time.Duration) int64 {
	return d.Milliseconds()
}

// Clamp 将v限制在[lo, hi]
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SafeFileName 将非字母数字及 _- 以外的字符替换为 _
func SafeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r > 127:
			// 中文等非 ASCII 字符保留
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
