package orm

import "time"

// DBType 数据库类型
type DBType string

const (
	MySQL      DBType = "mysql"
	PostgreSQL DBType = "postgres"
	SQLite     DBType = "sqlite"
	SQLServer  DBType = "sqlserver"
)

// Config 插件持久化数据库配置
type Config struct {
	Type DBType
	DSN  string

	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration

	// LogLevel silent/error/warn/info
	LogLevel      string
	SlowThreshold time.Duration

	// TablePrefix 表名前缀，默认 qibot_
	TablePrefix string

	// Tracing 注册链路追踪回调
	Tracing bool
}

// DefaultConfig 默认使用本地 SQLite
func DefaultConfig() *Config {
	return &Config{
		Type:            SQLite,
		DSN:             "qibot.db",
		MaxIdleConns:    2,
		MaxOpenConns:    10,
		ConnMaxLifetime: time.Hour,
		LogLevel:        "warn",
		SlowThreshold:   200 * time.Millisecond,
		TablePrefix:     "qibot_",
	}
}
