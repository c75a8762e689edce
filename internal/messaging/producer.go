package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/nexusmart/shop/internal/domain"
)

const (
	eventTypeHeader = "event-type"

	EventOrderPlaced = "order.placed"
)

var (
	producerTracer = otel.Tracer("messaging/producer")
	meter          = otel.Meter("messaging")
)

func eventTypeAttr(eventType string) attribute.KeyValue {
	return attribute.String("messaging.event_type", eventType)
}

type Producer struct {
	writer    *kafka.Writer
	topic     string
	published metric.Int64Counter
}

// NewProducer writes to one topic. Keys are hashed to partitions so per-key
// ordering holds, and writes wait for all in-sync replicas.
func NewProducer(brokers []string, topic string) *Producer {
	published, err := meter.Int64Counter("messaging.messages.published",
		metric.WithDescription("Events written to Kafka, by event type and outcome"))
	if err != nil {
		otel.Handle(err)
	}

	return &Producer{
		topic:     topic,
		published: published,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		},
	}
}

// PublishOrderPlaced sends the event keyed by order ID, so every event of
// one order lands on the same partition.
func (p *Producer) PublishOrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error {
	return p.Publish(ctx, EventOrderPlaced, event.OrderID, event)
}

// Publish encodes event as JSON and writes it with the event type and the
// current trace context in the headers.
func (p *Producer) Publish(ctx context.Context, eventType, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}

	ctx, span := producerTracer.Start(ctx, "send "+p.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingKafkaMessageKey(key),
			eventTypeAttr(eventType),
		),
	)
	defer span.End()

	msg := kafka.Message{Key: []byte(key), Value: data}
	carrier := NewMessageCarrier(&msg)
	carrier.Set(eventTypeHeader, eventType)
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	err = p.writer.WriteMessages(ctx, msg)
	p.record(ctx, eventType, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("write %s event: %w", eventType, err)
	}

	return nil
}

func (p *Producer) record(ctx context.Context, eventType string, err error) {
	if p.published == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.published.Add(ctx, 1, metric.WithAttributes(eventTypeAttr(eventType), attribute.String("outcome", outcome)))
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
