package xhook

import "time"

type Option func(*options)

type options struct {
	Order             int
	MustInvokeSuccess bool
	Timeout           time.Duration
}

// Order 执行顺序，越小越先执行，默认 100
func Order(order int) Option {
	return func(o *options) {
		o.Order = order
	}
}

// MustInvokeSuccess 仅对 BeforeStart 生效，为 false 时失败只告警不中断启动
func MustInvokeSuccess(success bool) Option {
	return func(o *options) {
		o.MustInvokeSuccess = success
	}
}

// Timeout 单个 hook 的超时时间，默认 30s
func Timeout(timeout time.Duration) Option {
	return func(o *options) {
		o.Timeout = timeout
	}
}

func defaultOptions() *options {
	return &options{
		Order:             100,
		MustInvokeSuccess: true,
		Timeout:           30 * time.Second,
	}
}
