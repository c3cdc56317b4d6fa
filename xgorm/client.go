package xgorm

import (
	"context"

	"gorm.io/gorm"
)

// C 获取 gorm client，未配置 XGorm 时返回 nil
func C() *gorm.DB {
	clientMu.RLock()
	defer clientMu.RUnlock()
	return client
}

// CWithCtx 保证 ctx 中的 trace 能传递到下游
func CWithCtx(ctx context.Context) *gorm.DB {
	c := C()
	if c == nil {
		return nil
	}
	return c.WithContext(ctx)
}
