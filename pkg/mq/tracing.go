package mq

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const mqTracerName = "github.com/tokmz/qibot/mq"

// tracedPublisher 链路追踪发布者装饰器
type tracedPublisher struct {
	Publisher
	system string
	tracer trace.Tracer
}

// NewTracing 创建带链路追踪的发布者，system 为 kafka 或 rabbitmq
func NewTracing(p Publisher, system string) Publisher {
	return &tracedPublisher{
		Publisher: p,
		system:    system,
		tracer:    otel.Tracer(mqTracerName),
	}
}

func (t *tracedPublisher) Publish(ctx context.Context, key string, value any) error {
	ctx, span := t.tracer.Start(ctx, "mq.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", t.system),
			attribute.String("messaging.key", key),
		),
	)
	defer span.End()

	err := t.Publisher.Publish(ctx, key, value)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
