// Package action 把识别结果转换为合成输入事件
package action

import (
	"image"
	"strings"
	"time"

	"github.com/xiaoshicae/xvision/xerror"
)

type Kind string

const (
	KindDoNothing Kind = "DoNothing"
	KindClick     Kind = "Click"
	KindSwipe     Kind = "Swipe"
	KindInputText Kind = "InputText"
	KindWait      Kind = "Wait"
	KindLongPress Kind = "LongPress"
)

var kindAliases = map[string]Kind{
	"":           KindDoNothing,
	"none":       KindDoNothing,
	"donothing":  KindDoNothing,
	"click":      KindClick,
	"swipe":      KindSwipe,
	"inputtext":  KindInputText,
	"input_text": KindInputText,
	"wait":       KindWait,
	"longpress":  KindLongPress,
	"long_press": KindLongPress,
}

// ParseKind 大小写不敏感，兼容 snake_case 写法
func ParseKind(s string) (Kind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", xerror.Config("action", "parseKind", "unknown action [%s]", s)
	}
	return k, nil
}

// NeedsTarget 需要解析目标点的动作
func (k Kind) NeedsTarget() bool {
	return k == KindClick || k == KindLongPress
}

// Request 已解析好屏幕坐标的动作
type Request struct {
	Kind     Kind          `json:"kind"`
	Point    image.Point   `json:"point"`
	Begin    image.Point   `json:"begin"`
	End      image.Point   `json:"end"`
	Duration time.Duration `json:"duration"`
	Text     string        `json:"text,omitempty"`
}

// Ack 下发成功的回执
type Ack struct {
	Kind   Kind          `json:"kind"`
	Points []image.Point `json:"points,omitempty"`
	Text   string        `json:"text,omitempty"`
	CostMs int64         `json:"cost_ms"`
}
