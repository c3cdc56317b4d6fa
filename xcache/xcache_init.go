package xcache

import (
	"sync"

	"github.com/dgraph-io/ristretto"

	"github.com/xiaoshicae/xvision/xconfig"
	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xhook"
	"github.com/xiaoshicae/xvision/xutil"
)

var (
	globalCache *Cache
	cacheMu     sync.Mutex
)

func init() {
	xhook.BeforeStart(initXCache)
	xhook.BeforeStop(closeXCache)
}

// C 获取全局缓存，未初始化时按默认配置懒加载
func C() *Cache {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if globalCache != nil {
		return globalCache
	}
	c, err := New(configMergeDefault(nil))
	if err != nil {
		xutil.ErrorIfEnableDebug("XVision xcache create default global cache failed, err=[%v]", err)
		return nil
	}
	globalCache = c
	return globalCache
}

func initXCache() error {
	c := &Config{}
	if err := xconfig.UnmarshalConfig(XCacheConfigKey, c); err != nil {
		return xerror.Newf("xcache", "init", "getConfig failed, err=[%v]", err)
	}
	c = configMergeDefault(c)
	xutil.InfoIfEnableDebug("XVision init %s got config: %s", XCacheConfigKey, xutil.ToJsonString(c))

	cache, err := New(c)
	if err != nil {
		return err
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if globalCache != nil {
		globalCache.Close()
	}
	globalCache = cache
	return nil
}

func closeXCache() error {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if globalCache != nil {
		globalCache.Close()
		globalCache = nil
	}
	return nil
}

// New 按配置创建独立缓存实例
func New(c *Config) (*Cache, error) {
	c = configMergeDefault(c)
	raw, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: c.NumCounters,
		MaxCost:     c.MaxCost,
		BufferItems: c.BufferItems,
	})
	if err != nil {
		return nil, xerror.Newf("xcache", "newCache", "ristretto.NewCache failed, err=[%v]", err)
	}
	return &Cache{raw: raw, defaultTTL: xutil.ToDuration(c.DefaultTTL)}, nil
}
