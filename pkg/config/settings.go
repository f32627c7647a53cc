package config

import (
	"net/url"
	"time"
)

// Settings 机器人进程的完整配置
type Settings struct {
	Bot      BotSettings      `mapstructure:"bot" yaml:"bot"`
	WS       WSSettings       `mapstructure:"ws" yaml:"ws"`
	Log      LogSettings      `mapstructure:"log" yaml:"log"`
	Tracing  TracingSettings  `mapstructure:"tracing" yaml:"tracing"`
	Admin    AdminSettings    `mapstructure:"admin" yaml:"admin"`
	Cache    CacheSettings    `mapstructure:"cache" yaml:"cache"`
	Database DatabaseSettings `mapstructure:"database" yaml:"database"`
	MQ       MQSettings       `mapstructure:"mq" yaml:"mq"`
	Plugins  PluginSettings   `mapstructure:"plugins" yaml:"plugins"`
}

// BotSettings 连接与启动
type BotSettings struct {
	URL           string `mapstructure:"url" yaml:"url"`
	AccessToken   string `mapstructure:"access_token" yaml:"access_token"`
	Banner        bool   `mapstructure:"banner" yaml:"banner"`
	HandleSignals bool   `mapstructure:"handle_signals" yaml:"handle_signals"`
}

// WSSettings 传输参数，调用超时固定为 5s 不可配置
type WSSettings struct {
	HandshakeTimeout  time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout"`
	PingInterval      time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`
	PongWait          time.Duration `mapstructure:"pong_wait" yaml:"pong_wait"`
	WriteWait         time.Duration `mapstructure:"write_wait" yaml:"write_wait"`
	MaxMessageSize    int64         `mapstructure:"max_message_size" yaml:"max_message_size"`
	QueueSize         int           `mapstructure:"queue_size" yaml:"queue_size"`
	EnableCompression bool          `mapstructure:"enable_compression" yaml:"enable_compression"`
}

// LogSettings 日志
type LogSettings struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	// File 非空时按大小轮转写入文件
	File       string `mapstructure:"file" yaml:"file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// TracingSettings 链路追踪
type TracingSettings struct {
	Enabled      bool    `mapstructure:"enabled" yaml:"enabled"`
	Exporter     string  `mapstructure:"exporter" yaml:"exporter"`
	Endpoint     string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure     bool    `mapstructure:"insecure" yaml:"insecure"`
	SamplingRate float64 `mapstructure:"sampling_rate" yaml:"sampling_rate"`
	Environment  string  `mapstructure:"environment" yaml:"environment"`
}

// AdminSettings 管理 HTTP 服务
type AdminSettings struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
	// Metrics 暴露 Prometheus 指标
	Metrics   bool   `mapstructure:"metrics" yaml:"metrics"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// CacheSettings 插件缓存
type CacheSettings struct {
	Driver    string        `mapstructure:"driver" yaml:"driver"`
	KeyPrefix string        `mapstructure:"key_prefix" yaml:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Redis     RedisSettings `mapstructure:"redis" yaml:"redis"`
}

// RedisSettings Redis 连接
type RedisSettings struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// DatabaseSettings 插件持久化
type DatabaseSettings struct {
	// Driver sqlite/mysql/postgres/sqlserver
	Driver       string `mapstructure:"driver" yaml:"driver"`
	DSN          string `mapstructure:"dsn" yaml:"dsn"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
}

// MQSettings 消息转发
type MQSettings struct {
	// Driver kafka/rabbitmq，空表示不转发
	Driver   string           `mapstructure:"driver" yaml:"driver"`
	Kafka    KafkaSettings    `mapstructure:"kafka" yaml:"kafka"`
	RabbitMQ RabbitMQSettings `mapstructure:"rabbitmq" yaml:"rabbitmq"`
}

// KafkaSettings Kafka 生产者
type KafkaSettings struct {
	Brokers []string `mapstructure:"brokers" yaml:"brokers"`
	Topic   string   `mapstructure:"topic" yaml:"topic"`
}

// RabbitMQSettings RabbitMQ 发布者
type RabbitMQSettings struct {
	URL        string `mapstructure:"url" yaml:"url"`
	Exchange   string `mapstructure:"exchange" yaml:"exchange"`
	RoutingKey string `mapstructure:"routing_key" yaml:"routing_key"`
}

// PluginSettings 内置插件
type PluginSettings struct {
	// Enabled 启用的插件名，空表示全部启用
	Enabled    []string           `mapstructure:"enabled" yaml:"enabled"`
	Bonus      BonusSettings      `mapstructure:"bonus" yaml:"bonus"`
	HackerNews HackerNewsSettings `mapstructure:"hackernews" yaml:"hackernews"`
	WTE        WTESettings        `mapstructure:"wte" yaml:"wte"`
	URLDetail  URLDetailSettings  `mapstructure:"urldetail" yaml:"urldetail"`
}

// BonusSettings 每日积分
type BonusSettings struct {
	Min int `mapstructure:"min" yaml:"min"`
	Max int `mapstructure:"max" yaml:"max"`
}

// HackerNewsSettings 热门新闻
type HackerNewsSettings struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Limit   int    `mapstructure:"limit" yaml:"limit"`
	// Cron 定时推送表达式，空表示不推送
	Cron   string  `mapstructure:"cron" yaml:"cron"`
	Groups []int64 `mapstructure:"groups" yaml:"groups"`
}

// WTESettings 今天吃什么
type WTESettings struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// URLDetailSettings 链接解析
type URLDetailSettings struct {
	// TTL 详情缓存时间
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
	// YouTubeKey 空表示不识别 YouTube 链接
	YouTubeKey string `mapstructure:"youtube_key" yaml:"youtube_key"`
}

// Defaults 默认配置，键与 Settings 的 mapstructure 路径一致
func Defaults() map[string]any {
	return map[string]any{
		"bot.url":            "",
		"bot.access_token":   "",
		"bot.banner":         true,
		"bot.handle_signals": true,

		"ws.handshake_timeout":  10 * time.Second,
		"ws.ping_interval":      30 * time.Second,
		"ws.pong_wait":          90 * time.Second,
		"ws.write_wait":         10 * time.Second,
		"ws.max_message_size":   16 << 20,
		"ws.queue_size":         32,
		"ws.enable_compression": false,

		"log.level":       "info",
		"log.format":      "console",
		"log.file":        "",
		"log.max_size":    100,
		"log.max_backups": 10,
		"log.max_age":     30,
		"log.compress":    false,

		"tracing.enabled":       false,
		"tracing.exporter":      "noop",
		"tracing.endpoint":      "",
		"tracing.insecure":      false,
		"tracing.sampling_rate": 1.0,
		"tracing.environment":   "development",

		"admin.enabled":   false,
		"admin.addr":      ":8081",
		"admin.metrics":   true,
		"admin.namespace": "qibot",

		"cache.driver":         "memory",
		"cache.key_prefix":     "qibot:",
		"cache.ttl":            10 * time.Minute,
		"cache.redis.addr":     "localhost:6379",
		"cache.redis.password": "",
		"cache.redis.db":       0,

		"database.driver":         "sqlite",
		"database.dsn":            "qibot.db",
		"database.log_level":      "warn",
		"database.max_open_conns": 10,
		"database.max_idle_conns": 2,

		"mq.driver":               "",
		"mq.kafka.brokers":        []string{},
		"mq.kafka.topic":          "qibot.messages",
		"mq.rabbitmq.url":         "",
		"mq.rabbitmq.exchange":    "qibot",
		"mq.rabbitmq.routing_key": "messages",

		"plugins.enabled":               []string{},
		"plugins.bonus.min":             1,
		"plugins.bonus.max":             100,
		"plugins.hackernews.base_url":   "https://hacker-news.firebaseio.com/v0",
		"plugins.hackernews.limit":      10,
		"plugins.hackernews.cron":       "",
		"plugins.hackernews.groups":     []int64{},
		"plugins.wte.dir":               "assets/wte",
		"plugins.urldetail.ttl":         time.Hour,
		"plugins.urldetail.youtube_key": "",
	}
}

// Validate 校验跨字段约束
func (s *Settings) Validate() error {
	if s.Bot.URL == "" {
		return invalid("bot.url is required")
	}
	u, err := url.Parse(s.Bot.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return invalid("bot.url must be a ws:// or wss:// url")
	}
	if s.WS.PongWait <= s.WS.PingInterval {
		return invalid("ws.pong_wait must be greater than ws.ping_interval")
	}
	switch s.Cache.Driver {
	case "memory", "redis":
	default:
		return invalid("unknown cache.driver " + s.Cache.Driver)
	}
	switch s.MQ.Driver {
	case "":
	case "kafka":
		if len(s.MQ.Kafka.Brokers) == 0 {
			return invalid("mq.kafka.brokers is required")
		}
	case "rabbitmq":
		if s.MQ.RabbitMQ.URL == "" {
			return invalid("mq.rabbitmq.url is required")
		}
	default:
		return invalid("unknown mq.driver " + s.MQ.Driver)
	}
	if s.Plugins.Bonus.Min <= 0 || s.Plugins.Bonus.Max < s.Plugins.Bonus.Min {
		return invalid("plugins.bonus range is invalid")
	}
	return nil
}

// PluginEnabled 插件是否启用
func (s *Settings) PluginEnabled(name string) bool {
	if len(s.Plugins.Enabled) == 0 {
		return true
	}
	for _, n := range s.Plugins.Enabled {
		if n == name {
			return true
		}
	}
	return false
}
