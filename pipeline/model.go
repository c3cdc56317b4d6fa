// Package pipeline 声明式节点图与其执行器
package pipeline

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/xiaoshicae/xvision/action"
	"github.com/xiaoshicae/xvision/vision"
	"github.com/xiaoshicae/xvision/xerror"
)

const (
	DefaultPreDelay  = 200 * time.Millisecond
	DefaultPostDelay = 200 * time.Millisecond
	DefaultTimeout   = 20 * time.Second
	DefaultInterval  = time.Second
	DefaultDuration  = 200 * time.Millisecond
	DefaultCount     = 1

	MetaComment      = "$comment"
	MetaDescription  = "$description"
	MetaResourceBase = "$resource_base"
)

type RecognitionKind string

const (
	RecognitionDirectHit     RecognitionKind = vision.AlgorithmDirectHit
	RecognitionTemplateMatch RecognitionKind = vision.AlgorithmTemplateMatch
	RecognitionColorMatch    RecognitionKind = vision.AlgorithmColorMatch
)

var recognitionAliases = map[string]RecognitionKind{
	"":              RecognitionDirectHit,
	"none":          RecognitionDirectHit,
	"directhit":     RecognitionDirectHit,
	"template":      RecognitionTemplateMatch,
	"templatematch": RecognitionTemplateMatch,
	"color":         RecognitionColorMatch,
	"colormatch":    RecognitionColorMatch,
}

func ParseRecognitionKind(s string) (RecognitionKind, error) {
	k, ok := recognitionAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", xerror.Config("pipeline", "parse", "unknown recognition [%s]", s)
	}
	return k, nil
}

// Recognition 节点识别参数，Kind 决定其余字段哪些生效
type Recognition struct {
	Kind RecognitionKind `json:"kind"`

	Templates  []string  `json:"template,omitempty"`
	Thresholds []float64 `json:"threshold,omitempty" validate:"dive,gte=0,lte=1"`
	MultiScale bool      `json:"multi_scale,omitempty"`

	Lower     [3]int            `json:"lower,omitempty"`
	Upper     [3]int            `json:"upper,omitempty"`
	Method    vision.ColorSpace `json:"method,omitempty"`
	Count     int               `json:"count,omitempty" validate:"gte=1"`
	Connected bool              `json:"connected,omitempty"`

	ROI     *vision.Rect `json:"roi,omitempty"`
	Inverse bool         `json:"inverse,omitempty"`
}

func (r *Recognition) Present() bool {
	return r.Kind != RecognitionDirectHit
}

// Describe 失败信息中说明在找什么
func (r *Recognition) Describe() string {
	switch r.Kind {
	case RecognitionTemplateMatch:
		return "template " + strings.Join(r.Templates, ",")
	case RecognitionColorMatch:
		return fmt.Sprintf("color %s %v~%v", r.Method, r.Lower, r.Upper)
	default:
		return string(r.Kind)
	}
}

// Target 动作目标，Fixed 为空时使用识别框
type Target struct {
	Fixed *vision.Rect `json:"fixed,omitempty"`
}

// Action 节点动作
type Action struct {
	Kind     action.Kind   `json:"kind"`
	Target   Target        `json:"target"`
	Offset   vision.Rect   `json:"target_offset"`
	Begin    *Target       `json:"begin,omitempty"`
	End      *Target       `json:"end,omitempty"`
	Duration time.Duration `json:"duration" validate:"gte=0"`
	Text     string        `json:"input_text,omitempty"`
}

// Node 流水线节点
type Node struct {
	Name              string        `json:"name" validate:"required"`
	Recognition       Recognition   `json:"recognition"`
	Action            Action        `json:"action"`
	Next              []string      `json:"next,omitempty"`
	PreDelay          time.Duration `json:"pre_delay" validate:"gte=0"`
	PostDelay         time.Duration `json:"post_delay" validate:"gte=0"`
	Timeout           time.Duration `json:"timeout" validate:"gte=0"`
	Interval          time.Duration `json:"rate_limit" validate:"gte=0"`
	Enabled           bool          `json:"enabled"`
	IgnoreActionError bool          `json:"ignore_action_error,omitempty"`
}

// NewNode 带默认时序参数的节点
func NewNode(name string) *Node {
	return &Node{
		Name:        name,
		Recognition: Recognition{Kind: RecognitionDirectHit, Count: DefaultCount, Method: vision.ColorSpaceHSV},
		Action:      Action{Kind: action.KindDoNothing, Duration: DefaultDuration},
		PreDelay:    DefaultPreDelay,
		PostDelay:   DefaultPostDelay,
		Timeout:     DefaultTimeout,
		Interval:    DefaultInterval,
		Enabled:     true,
	}
}

func (n *Node) clone() *Node {
	cp := *n
	cp.Next = slices.Clone(n.Next)
	cp.Recognition.Templates = slices.Clone(n.Recognition.Templates)
	cp.Recognition.Thresholds = slices.Clone(n.Recognition.Thresholds)
	if n.Recognition.ROI != nil {
		roi := *n.Recognition.ROI
		cp.Recognition.ROI = &roi
	}
	cp.Action.Target = n.Action.Target.clone()
	if n.Action.Begin != nil {
		b := n.Action.Begin.clone()
		cp.Action.Begin = &b
	}
	if n.Action.End != nil {
		e := n.Action.End.clone()
		cp.Action.End = &e
	}
	return &cp
}

func (t Target) clone() Target {
	if t.Fixed == nil {
		return t
	}
	f := *t.Fixed
	return Target{Fixed: &f}
}

// Config 节点名到节点的映射，运行开始后只读
type Config struct {
	Nodes map[string]*Node `json:"nodes"`
	Meta  map[string]any   `json:"meta,omitempty"`
}

func NewConfig() *Config {
	return &Config{Nodes: make(map[string]*Node), Meta: make(map[string]any)}
}

// Clone 深拷贝，供并发复用
func (c *Config) Clone() *Config {
	cp := &Config{Nodes: make(map[string]*Node, len(c.Nodes)), Meta: make(map[string]any, len(c.Meta))}
	for k, n := range c.Nodes {
		cp.Nodes[k] = n.clone()
	}
	for k, v := range c.Meta {
		cp.Meta[k] = v
	}
	return cp
}

// Entries 排序后的节点名
func (c *Config) Entries() []string {
	names := make([]string, 0, len(c.Nodes))
	for k := range c.Nodes {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Description 取 $description，缺省取 $comment
func (c *Config) Description() string {
	for _, k := range []string{MetaDescription, MetaComment} {
		if s, ok := c.Meta[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func (c *Config) ResourceBase() string {
	s, _ := c.Meta[MetaResourceBase].(string)
	return s
}
