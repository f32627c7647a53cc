package mq

import (
	"time"

	"github.com/tokmz/qibot/pkg/logger"
)

// Driver 消息队列驱动
type Driver string

const (
	DriverKafka    Driver = "kafka"
	DriverRabbitMQ Driver = "rabbitmq"
)

// KafkaConfig Kafka 生产者配置
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
	// Timeout 等待 broker 确认的时间
	Timeout time.Duration
}

// RabbitMQConfig RabbitMQ 配置
type RabbitMQConfig struct {
	URL          string
	Exchange     string
	ExchangeType string // 默认 topic
	RoutingKey   string // Publish 未指定 key 时使用
}

// Config 发布者配置
type Config struct {
	Driver   Driver
	Kafka    KafkaConfig
	RabbitMQ RabbitMQConfig
	Logger   logger.Logger
	Tracing  bool
}

// Option 配置选项函数
type Option func(*Config)

// DefaultConfig 默认配置，未指定驱动
func DefaultConfig() *Config {
	return &Config{
		Kafka: KafkaConfig{
			Topic:    "qibot.messages",
			ClientID: "qibot",
			Timeout:  10 * time.Second,
		},
		RabbitMQ: RabbitMQConfig{
			Exchange:     "qibot",
			ExchangeType: "topic",
			RoutingKey:   "messages",
		},
		Logger: logger.Nop(),
	}
}

// WithKafka 使用 Kafka
func WithKafka(brokers []string, topic string) Option {
	return func(c *Config) {
		c.Driver = DriverKafka
		c.Kafka.Brokers = brokers
		if topic != "" {
			c.Kafka.Topic = topic
		}
	}
}

// WithRabbitMQ 使用 RabbitMQ
func WithRabbitMQ(url, exchange, routingKey string) Option {
	return func(c *Config) {
		c.Driver = DriverRabbitMQ
		c.RabbitMQ.URL = url
		if exchange != "" {
			c.RabbitMQ.Exchange = exchange
		}
		if routingKey != "" {
			c.RabbitMQ.RoutingKey = routingKey
		}
	}
}

// WithLogger 设置日志器
func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithTracing 发布时创建 span 并把链路上下文写入消息头
func WithTracing(enable bool) Option {
	return func(c *Config) {
		c.Tracing = enable
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverKafka:
		if len(c.Kafka.Brokers) == 0 {
			return ErrInvalidConfig.WithMessage("mq: kafka brokers are required")
		}
		if c.Kafka.Topic == "" {
			return ErrInvalidConfig.WithMessage("mq: kafka topic is required")
		}
	case DriverRabbitMQ:
		if c.RabbitMQ.URL == "" {
			return ErrInvalidConfig.WithMessage("mq: rabbitmq url is required")
		}
		if c.RabbitMQ.Exchange == "" {
			return ErrInvalidConfig.WithMessage("mq: rabbitmq exchange is required")
		}
	default:
		return ErrInvalidConfig.WithMessage("mq: unsupported driver " + string(c.Driver))
	}
	return nil
}
