package app

import (
	"os"

	"github.com/tokmz/qibot/pkg/cache"
	"github.com/tokmz/qibot/pkg/config"
	"github.com/tokmz/qibot/pkg/errors"
	"github.com/tokmz/qibot/pkg/logger"
	"github.com/tokmz/qibot/pkg/mq"
	"github.com/tokmz/qibot/pkg/orm"
	"github.com/tokmz/qibot/pkg/tracing"
	"github.com/tokmz/qibot/pkg/ws"
)

// NewLogger 按日志配置创建日志器，配置了文件时同时按大小轮转写入
func NewLogger(s config.LogSettings, hooks ...logger.Hook) (logger.Logger, error) {
	format := logger.Format(s.Format)
	if !format.IsValid() {
		return nil, errors.ErrInvalidConfig.WithMessage("app: unknown log.format " + s.Format)
	}
	opts := []logger.Option{
		logger.WithLevel(logger.ParseLevel(s.Level)),
		logger.WithFormat(format),
		logger.WithOutput(os.Stdout),
		logger.WithStacktrace(true),
		logger.WithHook(hooks...),
	}
	if s.File != "" {
		opts = append(opts, logger.WithFile(s.File, &logger.RotateConfig{
			MaxSize:    s.MaxSize,
			MaxAge:     s.MaxAge,
			MaxBackups: s.MaxBackups,
			Compress:   s.Compress,
		}))
	}
	return logger.NewWithOptions(opts...)
}

func tracingConfig(s config.TracingSettings) *tracing.Config {
	cfg := tracing.DefaultConfig()
	cfg.ExporterType = s.Exporter
	cfg.ExporterEndpoint = s.Endpoint
	cfg.Insecure = s.Insecure
	cfg.SamplingRate = s.SamplingRate
	if s.SamplingRate < 1 {
		cfg.SamplingType = tracing.SamplingRatio
	}
	if s.Environment != "" {
		cfg.Environment = s.Environment
	}
	return cfg
}

func wsOptions(s config.WSSettings) []ws.Option {
	return []ws.Option{
		ws.WithHandshakeTimeout(s.HandshakeTimeout),
		ws.WithPingInterval(s.PingInterval),
		ws.WithPongWait(s.PongWait),
		ws.WithWriteWait(s.WriteWait),
		ws.WithMessageSizeLimit(s.MaxMessageSize),
		ws.WithQueueSize(s.QueueSize),
		ws.WithEnableCompression(s.EnableCompression),
	}
}

func cacheConfig(s config.CacheSettings, tracing bool) *cache.Config {
	cfg := cache.DefaultConfig()
	cfg.Driver = cache.DriverType(s.Driver)
	cfg.KeyPrefix = s.KeyPrefix
	if s.TTL > 0 {
		cfg.DefaultTTL = s.TTL
	}
	if cfg.Driver == cache.DriverRedis {
		redis := cache.DefaultRedisConfig()
		redis.Addr = s.Redis.Addr
		redis.Password = s.Redis.Password
		redis.DB = s.Redis.DB
		cfg.Redis = redis
	}
	cfg.Tracing = tracing
	return cfg
}

func ormConfig(s config.DatabaseSettings, tracing bool) *orm.Config {
	cfg := orm.DefaultConfig()
	cfg.Type = orm.DBType(s.Driver)
	cfg.DSN = s.DSN
	cfg.LogLevel = s.LogLevel
	if s.MaxOpenConns > 0 {
		cfg.MaxOpenConns = s.MaxOpenConns
	}
	if s.MaxIdleConns > 0 {
		cfg.MaxIdleConns = s.MaxIdleConns
	}
	cfg.Tracing = tracing
	return cfg
}

func mqConfig(s config.MQSettings, log logger.Logger, tracing bool) *mq.Config {
	cfg := mq.DefaultConfig()
	cfg.Driver = mq.Driver(s.Driver)
	cfg.Kafka.Brokers = s.Kafka.Brokers
	if s.Kafka.Topic != "" {
		cfg.Kafka.Topic = s.Kafka.Topic
	}
	cfg.RabbitMQ.URL = s.RabbitMQ.URL
	if s.RabbitMQ.Exchange != "" {
		cfg.RabbitMQ.Exchange = s.RabbitMQ.Exchange
	}
	if s.RabbitMQ.RoutingKey != "" {
		cfg.RabbitMQ.RoutingKey = s.RabbitMQ.RoutingKey
	}
	cfg.Logger = log
	cfg.Tracing = tracing
	return cfg
}
