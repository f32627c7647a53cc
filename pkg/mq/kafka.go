package mq

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/tokmz/qibot/pkg/logger"
)

// kafkaPublisher 基于 sarama 同步生产者
type kafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   logger.Logger
	closed   atomic.Bool
}

// NewKafka 连接 broker 并创建同步生产者
func NewKafka(cfg *Config) (Publisher, error) {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.Kafka.ClientID
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Producer.Retry.Max = 3
	if cfg.Kafka.Timeout > 0 {
		sc.Producer.Timeout = cfg.Kafka.Timeout
		sc.Net.DialTimeout = cfg.Kafka.Timeout
	}

	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, sc)
	if err != nil {
		return nil, ErrConnect.WithError(err)
	}
	cfg.Logger.Info("[mq] kafka producer ready",
		zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	return newKafkaWithProducer(producer, cfg), nil
}

func newKafkaWithProducer(producer sarama.SyncProducer, cfg *Config) *kafkaPublisher {
	return &kafkaPublisher{
		producer: producer,
		topic:    cfg.Kafka.Topic,
		logger:   cfg.Logger,
	}
}

func (k *kafkaPublisher) Publish(ctx context.Context, key string, value any) error {
	if k.closed.Load() {
		return ErrClosed
	}
	data, err := marshal(value)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic:     k.topic,
		Value:     sarama.ByteEncoder(data),
		Timestamp: time.Now(),
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}
	otel.GetTextMapPropagator().Inject(ctx, &kafkaHeaders{msg: msg})

	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		return ErrPublish.WithError(err)
	}
	k.logger.Debug("[mq] kafka published",
		zap.String("topic", k.topic), zap.Int32("partition", partition), zap.Int64("offset", offset))
	return nil
}

func (k *kafkaPublisher) Close() error {
	if !k.closed.CompareAndSwap(false, true) {
		return nil
	}
	return k.producer.Close()
}

// kafkaHeaders 把链路上下文写入消息头
type kafkaHeaders struct {
	msg *sarama.ProducerMessage
}

func (h *kafkaHeaders) Get(key string) string {
	for _, rh := range h.msg.Headers {
		if string(rh.Key) == key {
			return string(rh.Value)
		}
	}
	return ""
}

func (h *kafkaHeaders) Set(key, value string) {
	for i, rh := range h.msg.Headers {
		if string(rh.Key) == key {
			h.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	h.msg.Headers = append(h.msg.Headers, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
}

func (h *kafkaHeaders) Keys() []string {
	keys := make([]string, len(h.msg.Headers))
	for i, rh := range h.msg.Headers {
		keys[i] = string(rh.Key)
	}
	return keys
}
