// Package xerror 提供 XVision 统一错误类型与错误分类
package xerror

import (
	"context"
	"errors"
	"fmt"
)

// Kind 错误分类，PipelineResult 对外暴露的错误类型即为 Kind
type Kind string

const (
	KindConfiguration Kind = "ConfigurationError" // 配置错误，运行前检出，不重试
	KindRecognition   Kind = "RecognitionError"   // 识别过程持续出错（区别于正常的未命中）
	KindNodeTimeout   Kind = "NodeTimeout"        // 节点识别在 timeout 内未命中
	KindRunTimeout    Kind = "RunTimeout"         // 超出整次运行的全局预算
	KindDispatch      Kind = "DispatchError"      // 动作下发失败
	KindCancelled     Kind = "Cancelled"          // 外部取消
	KindInternal      Kind = "InternalError"      // 其他内部错误
)

// XError 统一错误类型，包含分类、模块名、操作名、节点名和原始错误
type XError struct {
	Kind   Kind   // 错误分类
	Module string // 模块名，如 "pipeline", "vision"
	Op     string // 操作名，如 "validate", "dispatch"
	Node   string // 出错节点名，可为空
	Err    error  // 原始错误
}

// Error 实现 error 接口
func (e *XError) Error() string {
	prefix := fmt.Sprintf("XVision %s %s failed", e.Module, e.Op)
	if e.Node != "" {
		prefix = fmt.Sprintf("%s, node=[%s]", prefix, e.Node)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s, err=[%v]", prefix, e.Err)
	}
	return prefix
}

// Unwrap 支持 errors.Is / errors.As 链式判断
func (e *XError) Unwrap() error {
	return e.Err
}

// WithNode 返回带节点名的副本
func (e *XError) WithNode(node string) *XError {
	cp := *e
	cp.Node = node
	return &cp
}

// New 创建 Internal 分类的 XError
func New(module, op string, err error) *XError {
	return &XError{Kind: KindInternal, Module: module, Op: op, Err: err}
}

// Newf 创建带格式化消息的 Internal 分类 XError
func Newf(module, op, format string, args ...any) *XError {
	return &XError{Kind: KindInternal, Module: module, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap 创建指定分类的 XError
func Wrap(kind Kind, module, op string, err error) *XError {
	return &XError{Kind: kind, Module: module, Op: op, Err: err}
}

// Wrapf 创建指定分类且带格式化消息的 XError
func Wrapf(kind Kind, module, op, format string, args ...any) *XError {
	return &XError{Kind: kind, Module: module, Op: op, Err: fmt.Errorf(format, args...)}
}

// Config 创建 ConfigurationError
func Config(module, op, format string, args ...any) *XError {
	return Wrapf(KindConfiguration, module, op, format, args...)
}

// KindOf 从 err 链中提取分类
// context.Canceled 映射为 Cancelled，其余非 XError 视为 Internal，nil 返回空
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var xe *XError
	if errors.As(err, &xe) {
		return xe.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindInternal
}

// IsKind 判断 err 链中是否包含指定分类的 XError
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Is 判断 err 链中是否包含指定模块的 XError
func Is(err error, module string) bool {
	var xe *XError
	if errors.As(err, &xe) {
		return xe.Module == module
	}
	return false
}

// Module 从 err 链中提取模块名，若非 XError 则返回空字符串
func Module(err error) string {
	var xe *XError
	if errors.As(err, &xe) {
		return xe.Module
	}
	return ""
}

// NodeOf 从 err 链中提取节点名
func NodeOf(err error) string {
	var xe *XError
	if errors.As(err, &xe) {
		return xe.Node
	}
	return ""
}
