package mq

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/tokmz/qibot/pkg/logger"
)

// channel amqp.Channel 中用到的部分
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// rabbitPublisher 基于 amqp091 的发布者，消息持久化投递到 exchange
type rabbitPublisher struct {
	conn       *amqp.Connection
	ch         channel
	exchange   string
	routingKey string
	logger     logger.Logger
	closed     atomic.Bool
}

// NewRabbitMQ 连接 RabbitMQ 并声明 exchange
func NewRabbitMQ(cfg *Config) (Publisher, error) {
	conn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, ErrConnect.WithError(err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, ErrConnect.WithError(err)
	}

	kind := cfg.RabbitMQ.ExchangeType
	if kind == "" {
		kind = amqp.ExchangeTopic
	}
	if err := ch.ExchangeDeclare(cfg.RabbitMQ.Exchange, kind, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, ErrConnect.WithError(err)
	}

	cfg.Logger.Info("[mq] rabbitmq publisher ready",
		zap.String("exchange", cfg.RabbitMQ.Exchange), zap.String("kind", kind))
	p := newRabbitWithChannel(ch, cfg)
	p.conn = conn
	return p, nil
}

func newRabbitWithChannel(ch channel, cfg *Config) *rabbitPublisher {
	return &rabbitPublisher{
		ch:         ch,
		exchange:   cfg.RabbitMQ.Exchange,
		routingKey: cfg.RabbitMQ.RoutingKey,
		logger:     cfg.Logger,
	}
}

func (r *rabbitPublisher) Publish(ctx context.Context, key string, value any) error {
	if r.closed.Load() {
		return ErrClosed
	}
	data, err := marshal(value)
	if err != nil {
		return err
	}
	if key == "" {
		key = r.routingKey
	}

	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, amqpHeaders(headers))

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Headers:      headers,
		Body:         data,
	}
	if err := r.ch.PublishWithContext(ctx, r.exchange, key, false, false, msg); err != nil {
		return ErrPublish.WithError(err)
	}
	r.logger.Debug("[mq] rabbitmq published",
		zap.String("exchange", r.exchange), zap.String("key", key), zap.String("id", msg.MessageId))
	return nil
}

func (r *rabbitPublisher) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := r.ch.Close()
	if r.conn != nil {
		if cerr := r.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// amqpHeaders 把链路上下文写入消息头
type amqpHeaders amqp.Table

func (h amqpHeaders) Get(key string) string {
	if v, ok := h[key].(string); ok {
		return v
	}
	return ""
}

func (h amqpHeaders) Set(key, value string) {
	h[key] = value
}

func (h amqpHeaders) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	return keys
}
