package xgorm

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	stdMysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/xiaoshicae/xvision/xconfig"
	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xhook"
	"github.com/xiaoshicae/xvision/xtrace"
	"github.com/xiaoshicae/xvision/xutil"
)

var (
	client   *gorm.DB
	clientMu sync.RWMutex
)

func init() {
	xhook.BeforeStart(initXGorm, xhook.Order(5))
	xhook.BeforeStop(closeXGorm)
}

// initXGorm 未配置 XGorm 时跳过，流水线库功能不可用
func initXGorm() error {
	if !xconfig.ContainKey(XGormConfigKey) {
		xutil.WarnIfEnableDebug("XVision init %s skipped, config key [%s] not exists", XGormConfigKey, XGormConfigKey)
		return nil
	}
	c, err := getConfig()
	if err != nil {
		return xerror.Newf("xgorm", "init", "getConfig failed, err=[%v]", err)
	}
	xutil.InfoIfEnableDebug("XVision init %s got config: %s", XGormConfigKey, xutil.ToJsonString(c))

	db, err := New(c)
	if err != nil {
		return err
	}
	clientMu.Lock()
	client = db
	clientMu.Unlock()
	return nil
}

func closeXGorm() error {
	clientMu.Lock()
	defer clientMu.Unlock()
	if client == nil {
		return nil
	}
	db, err := client.DB()
	client = nil
	if err != nil {
		return xerror.Newf("xgorm", "close", "get underlying db failed, err=[%v]", err)
	}
	if err := db.Close(); err != nil {
		return xerror.Newf("xgorm", "close", "close db failed, err=[%v]", err)
	}
	return nil
}

// New 按配置创建独立的 gorm client，CLI 与测试直接使用
func New(c *Config) (*gorm.DB, error) {
	c = configMergeDefault(c)
	dialector, err := resolveDialector(c)
	if err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{}
	if c.EnableLog {
		gormConfig.Logger = newGormLogger(c)
	}
	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, xerror.Newf("xgorm", "newClient", "invoke gorm.Open failed, err=[%v]", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, xerror.Newf("xgorm", "newClient", "invoke db.DB failed, err=[%v]", err)
	}
	sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(xutil.ToDuration(c.MaxLifetime))

	err = xutil.Retry(func() error { return sqlDB.PingContext(context.Background()) }, 3, time.Second)
	if err != nil {
		return nil, xerror.Newf("xgorm", "newClient", "invoke db.PingContext failed, err=[%v]", err)
	}

	if xtrace.EnableTrace() {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, xerror.Newf("xgorm", "newClient", "use tracing.NewPlugin failed, err=[%v]", err)
		}
	}
	return db, nil
}

func resolveDialector(c *Config) (gorm.Dialector, error) {
	if c.DSN == "" {
		return nil, xerror.Config("xgorm", "resolveDialector", "dsn can't be empty")
	}
	switch Driver(c.Driver) {
	case DriverSQLite:
		if c.DSN != ":memory:" {
			if dir := filepath.Dir(c.DSN); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, xerror.Newf("xgorm", "resolveDialector", "mkdir for sqlite failed, err=[%v]", err)
				}
			}
		}
		return sqlite.Open(c.DSN), nil
	case DriverMySQL:
		dsn, err := resolveMySQLDSN(c)
		if err != nil {
			return nil, xerror.Config("xgorm", "resolveDialector", "resolve mysql dsn failed, err=[%v]", err)
		}
		return mysql.Open(dsn), nil
	case DriverPostgres:
		return postgres.Open(c.DSN), nil
	default:
		return nil, xerror.Config("xgorm", "resolveDialector", "unsupported driver: %s, supported: sqlite, mysql, postgres", c.Driver)
	}
}

// resolveMySQLDSN DSN 中未指定的超时项使用配置值补齐
func resolveMySQLDSN(c *Config) (string, error) {
	mc, err := stdMysql.ParseDSN(c.DSN)
	if err != nil {
		return "", err
	}
	if mc.ReadTimeout == 0 {
		mc.ReadTimeout = xutil.ToDuration(c.ReadTimeout)
	}
	if mc.WriteTimeout == 0 {
		mc.WriteTimeout = xutil.ToDuration(c.WriteTimeout)
	}
	if mc.Timeout == 0 {
		mc.Timeout = xutil.ToDuration(c.DialTimeout)
	}
	mc.ParseTime = true
	return mc.FormatDSN(), nil
}

func getConfig() (*Config, error) {
	c := &Config{}
	if err := xconfig.UnmarshalConfig(XGormConfigKey, c); err != nil {
		return nil, err
	}
	return configMergeDefault(c), nil
}
