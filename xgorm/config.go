package xgorm

const XGormConfigKey = "XGorm"

// Driver 数据库驱动类型
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

type Config struct {
	// Driver 数据库驱动类型 sqlite / postgres / mysql
	// optional default "sqlite"
	Driver string `mapstructure:"Driver"`

	// DSN 数据库连接的dsn，sqlite 为文件路径
	// optional default "./data/xvision.db"（仅 sqlite）
	DSN string `mapstructure:"DSN"`

	// DialTimeout 建连超时时间 (仅 mysql 有效)
	// optional default "500ms"
	DialTimeout string `mapstructure:"DialTimeout"`

	// ReadTimeout 读超时时间 (仅 mysql 有效)
	// optional default "3s"
	ReadTimeout string `mapstructure:"ReadTimeout"`

	// WriteTimeout 写超时时间 (仅 mysql 有效)
	// optional default "5s"
	WriteTimeout string `mapstructure:"WriteTimeout"`

	// MaxOpenConns 最大连接数，sqlite 固定为 1
	// optional default 10
	MaxOpenConns int `mapstructure:"MaxOpenConns"`

	// MaxIdleConns 最大空闲连接数
	// optional default 等于 MaxOpenConns
	MaxIdleConns int `mapstructure:"MaxIdleConns"`

	// MaxLifetime 连接的最长存活时间
	// optional default "5m"
	MaxLifetime string `mapstructure:"MaxLifetime"`

	// SlowThreshold 慢查询日志阈值
	// optional default "1s"
	SlowThreshold string `mapstructure:"SlowThreshold"`

	// EnableLog 是否把 gorm 日志写入应用日志
	// optional default false
	EnableLog bool `mapstructure:"EnableLog"`
}

func configMergeDefault(c *Config) *Config {
	if c == nil {
		c = &Config{}
	}
	if c.Driver == "" {
		c.Driver = string(DriverSQLite)
	}
	if c.DSN == "" && Driver(c.Driver) == DriverSQLite {
		c.DSN = "./data/xvision.db"
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "500ms"
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "3s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "5s"
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 10
	}
	if Driver(c.Driver) == DriverSQLite {
		c.MaxOpenConns = 1
	}
	if c.MaxIdleConns <= 0 || c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.MaxLifetime == "" {
		c.MaxLifetime = "5m"
	}
	if c.SlowThreshold == "" {
		c.SlowThreshold = "1s"
	}
	return c
}
