package mq

import (
	"context"
	"encoding/json"
)

// Publisher 消息发布者
type Publisher interface {
	// Publish 以 JSON 编码 value 发布，key 为分区键（Kafka）或路由键（RabbitMQ）
	Publish(ctx context.Context, key string, value any) error
	Close() error
}

// New 按驱动创建发布者
func New(opts ...Option) (Publisher, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig 使用配置创建发布者
func NewWithConfig(cfg *Config) (Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		p   Publisher
		err error
	)
	switch cfg.Driver {
	case DriverKafka:
		p, err = NewKafka(cfg)
	case DriverRabbitMQ:
		p, err = NewRabbitMQ(cfg)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Tracing {
		p = NewTracing(p, string(cfg.Driver))
	}
	return p, nil
}

func marshal(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, ErrMarshal.WithError(err)
	}
	return data, nil
}
