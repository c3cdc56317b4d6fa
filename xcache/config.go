package xcache

const XCacheConfigKey = "XCache"

const (
	defaultNumCounters = 100000
	defaultMaxCost     = 256 << 20
	defaultBufferItems = 64
	defaultTTL         = "30m"
)

// Config 本地缓存配置，主要用于缓存解码后的模板图像，cost 以字节计
type Config struct {
	// NumCounters 用于跟踪频率的键数量，建议设置为期望缓存条目数量的 10 倍
	// optional default 100000
	NumCounters int64 `mapstructure:"NumCounters"`

	// MaxCost 缓存的最大成本，以字节计
	// optional default 268435456 (256MB)
	MaxCost int64 `mapstructure:"MaxCost"`

	// BufferItems Get 操作的内部缓冲区大小
	// optional default 64
	BufferItems int64 `mapstructure:"BufferItems"`

	// DefaultTTL 默认的缓存过期时间
	// optional default "30m"
	DefaultTTL string `mapstructure:"DefaultTTL"`
}

func configMergeDefault(c *Config) *Config {
	if c == nil {
		c = &Config{}
	}
	if c.NumCounters <= 0 {
		c.NumCounters = defaultNumCounters
	}
	if c.MaxCost <= 0 {
		c.MaxCost = defaultMaxCost
	}
	if c.BufferItems <= 0 {
		c.BufferItems = defaultBufferItems
	}
	if c.DefaultTTL == "" {
		c.DefaultTTL = defaultTTL
	}
	return c
}
