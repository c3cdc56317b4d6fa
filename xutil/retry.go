package xutil

import (
	"context"
	"time"
)

// Retry 重试函数，attempts<=0 时只执行一次
func Retry(fn func() error, attempts int, sleep time.Duration) error {
	return RetryCtx(context.Background(), fn, attempts, sleep)
}

// RetryCtx 可取消的重试，等待期间 ctx 结束则返回 ctx.Err()
func RetryCtx(ctx context.Context, fn func() error, attempts int, sleep time.Duration) (err error) {
	if attempts <= 0 {
		return fn()
	}
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i+1 < attempts && sleep > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
			}
		}
	}
	return err
}
