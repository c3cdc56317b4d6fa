package xcache

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"
)

// Cache 本地缓存封装，基于 ristretto
type Cache struct {
	raw        *ristretto.Cache
	defaultTTL time.Duration
	group      singleflight.Group
}

// Get 获取缓存值
func (c *Cache) Get(key string) (any, bool) {
	return c.raw.Get(key)
}

// Set 设置缓存值，使用默认 TTL，cost=1
func (c *Cache) Set(key string, value any) bool {
	return c.raw.SetWithTTL(key, value, 1, c.defaultTTL)
}

// SetWithCost 设置缓存值，指定 cost，使用默认 TTL
func (c *Cache) SetWithCost(key string, value any, cost int64) bool {
	return c.raw.SetWithTTL(key, value, cost, c.defaultTTL)
}

// Del 删除缓存值
func (c *Cache) Del(key string) {
	c.raw.Del(key)
}

// Clear 清空缓存
func (c *Cache) Clear() {
	c.raw.Clear()
}

// Wait 等待缓冲写入完成，ristretto 的 Set 不保证立即可读
func (c *Cache) Wait() {
	c.raw.Wait()
}

// Close 关闭缓存，释放资源
func (c *Cache) Close() {
	c.raw.Close()
}

// TypedCache 类型安全的缓存视图
type TypedCache[V any] struct {
	cache *Cache
}

// Of 获取类型安全的缓存视图，cache 为 nil 时使用全局缓存
func Of[V any](cache *Cache) *TypedCache[V] {
	if cache == nil {
		cache = C()
	}
	return &TypedCache[V]{cache: cache}
}

// Get 获取缓存值，类型不匹配视为未命中
func (t *TypedCache[V]) Get(key string) (V, bool) {
	var zero V
	if t.cache == nil {
		return zero, false
	}
	val, ok := t.cache.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := val.(V)
	return typed, ok
}

// GetOrLoad 未命中时调用 loader 加载并按其返回的 cost 写入，同一 key 的并发加载只执行一次
func (t *TypedCache[V]) GetOrLoad(key string, loader func() (V, int64, error)) (V, error) {
	if v, ok := t.Get(key); ok {
		return v, nil
	}
	if t.cache == nil {
		v, _, err := loader()
		return v, err
	}
	res, err, _ := t.cache.group.Do(key, func() (any, error) {
		v, cost, err := loader()
		if err != nil {
			return v, err
		}
		t.cache.SetWithCost(key, v, cost)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Del 删除缓存值
func (t *TypedCache[V]) Del(key string) {
	if t.cache != nil {
		t.cache.Del(key)
	}
}

// Wait 等待缓冲写入完成
func (t *TypedCache[V]) Wait() {
	if t.cache != nil {
		t.cache.Wait()
	}
}
