package xhook

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slices"

	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xutil"
)

const maxHookNum = 1000

// HookFunc Hook 函数类型定义
type HookFunc func() error

type hook struct {
	fn   HookFunc
	opts *options
}

// hookList 某一类 hook 的注册表，按 Order 稳定排序后执行
type hookList struct {
	name  string
	hooks []hook
	seen  map[uintptr]struct{}
}

var (
	mu          sync.Mutex
	stopTimeout = 60 * time.Second
	startHooks  = &hookList{name: "BeforeStart", seen: map[uintptr]struct{}{}}
	stopHooks   = &hookList{name: "BeforeStop", seen: map[uintptr]struct{}{}}
)

// SetStopTimeout 设置 BeforeStop hooks 的整体超时时间
func SetStopTimeout(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	mu.Lock()
	stopTimeout = timeout
	mu.Unlock()
}

// BeforeStart 注册 BeforeStart Hook，同一函数重复注册只保留第一次
func BeforeStart(f HookFunc, opts ...Option) {
	startHooks.register(f, opts)
}

// BeforeStop 注册 BeforeStop Hook
func BeforeStop(f HookFunc, opts ...Option) {
	stopHooks.register(f, opts)
}

func (l *hookList) register(f HookFunc, opts []Option) {
	if f == nil {
		panic(fmt.Sprintf("XVision %s hook can not be nil", l.name))
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(l.hooks) >= maxHookNum {
		panic(fmt.Sprintf("XVision %s hook can not be more than %d", l.name, maxHookNum))
	}
	fp := reflect.ValueOf(f).Pointer()
	if _, ok := l.seen[fp]; ok {
		xutil.WarnIfEnableDebug("XVision %s hook duplicate registration detected, skipping", l.name)
		return
	}
	l.seen[fp] = struct{}{}
	l.hooks = append(l.hooks, hook{fn: f, opts: o})
}

func (l *hookList) sorted() []hook {
	mu.Lock()
	defer mu.Unlock()
	hooks := slices.Clone(l.hooks)
	slices.SortStableFunc(hooks, func(a, b hook) int { return a.opts.Order - b.opts.Order })
	return hooks
}

// InvokeBeforeStartHook 按顺序执行所有 BeforeStart Hook，遇到 MustInvokeSuccess 的失败立即返回
func InvokeBeforeStartHook() error {
	for _, h := range startHooks.sorted() {
		name := funcFullName(h.fn)
		if err := invokeWithTimeout(h.fn, h.opts.Timeout); err != nil {
			if h.opts.MustInvokeSuccess {
				xutil.ErrorIfEnableDebug("XVision invoke before start hook failed, func=[%v], err=[%v]", name, err)
				return xerror.Newf("xhook", "BeforeStart", "func=[%v], err=[%v]", name, err)
			}
			xutil.WarnIfEnableDebug("XVision invoke before start hook failed, continue, func=[%v], err=[%v]", name, err)
			continue
		}
		xutil.InfoIfEnableDebug("XVision invoke before start hook success, func=[%v]", name)
	}
	return nil
}

// InvokeBeforeStopHook 执行所有 BeforeStop Hook，单个失败不影响后续，整体受 stopTimeout 约束
func InvokeBeforeStopHook() error {
	hooks := stopHooks.sorted()
	if len(hooks) == 0 {
		return nil
	}

	mu.Lock()
	timeout := stopTimeout
	mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	errMsgs := make([]string, 0)
	for i, h := range hooks {
		if ctx.Err() != nil {
			return xerror.Newf("xhook", "BeforeStop", "interrupted due to timeout, completed %d/%d hooks", i, len(hooks))
		}
		hookTimeout := h.opts.Timeout
		if remaining := time.Until(deadlineOf(ctx)); remaining < hookTimeout {
			hookTimeout = remaining
		}
		name := funcFullName(h.fn)
		if err := invokeWithTimeout(h.fn, hookTimeout); err != nil {
			xutil.ErrorIfEnableDebug("XVision invoke before stop hook failed, func=[%v], err=[%v]", name, err)
			errMsgs = append(errMsgs, fmt.Sprintf("func=[%v], err=[%v]", name, err))
			continue
		}
		xutil.InfoIfEnableDebug("XVision invoke before stop hook success, func=[%v]", name)
	}
	if len(errMsgs) > 0 {
		return xerror.Newf("xhook", "BeforeStop", "%s", strings.Join(errMsgs, "; "))
	}
	return nil
}

func deadlineOf(ctx context.Context) time.Time {
	d, _ := ctx.Deadline()
	return d
}

// invokeWithTimeout 超时只代表放弃等待，hook 所在 goroutine 会一直运行到返回
func invokeWithTimeout(fn HookFunc, timeout time.Duration) error {
	if timeout <= 0 {
		return safeInvoke(fn)
	}
	ch := make(chan error, 1)
	go func() { ch <- safeInvoke(fn) }()

	select {
	case err := <-ch:
		return err
	case <-time.After(timeout):
		return xerror.Newf("xhook", "invokeHook", "hook timeout after %v", timeout)
	}
}

func safeInvoke(fn HookFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = xerror.Newf("xhook", "invokeHook", "panic occurred, %v", r)
		}
	}()
	return fn()
}

func funcFullName(fn HookFunc) string {
	file, line, name := xutil.GetFuncInfo(fn)
	return fmt.Sprintf("%s:%d %s()", file, line, name)
}
