package messaging

import (
	"context"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var consumerTracer = otel.Tracer("messaging/consumer")

// Message is a consumed record. EventType comes from the event-type header
// and is empty for records published without one.
type Message struct {
	Key       string
	EventType string
	Payload   []byte
}

// Handler processes one message. Returning an error stops consumption
// without committing the message.
type Handler func(ctx context.Context, msg Message) error

type Consumer struct {
	reader    *kafka.Reader
	topic     string
	groupID   string
	processed metric.Int64Counter
}

type ConsumerOption func(*kafka.ReaderConfig)

// WithStartOffset sets where a group with no committed offset starts
// reading. The reader default is kafka.LastOffset.
func WithStartOffset(offset int64) ConsumerOption {
	return func(cfg *kafka.ReaderConfig) {
		cfg.StartOffset = offset
	}
}

func NewConsumer(brokers []string, topic, groupID string, opts ...ConsumerOption) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	processed, err := meter.Int64Counter("messaging.messages.processed",
		metric.WithDescription("Events handled by the consumer, by event type and outcome"))
	if err != nil {
		otel.Handle(err)
	}

	return &Consumer{
		reader:    kafka.NewReader(cfg),
		topic:     topic,
		groupID:   groupID,
		processed: processed,
	}
}

// Consume fetches, handles and commits messages one at a time until ctx is
// done or the handler fails.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		if err := c.processMessage(ctx, msg, handler); err != nil {
			return fmt.Errorf("handle message at offset %d: %w", msg.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message, handler Handler) error {
	carrier := NewMessageCarrier(&msg)
	eventType := carrier.Get(eventTypeHeader)
	parentCtx := otel.GetTextMapPropagator().Extract(ctx, carrier)

	spanCtx, span := consumerTracer.Start(parentCtx, "process "+c.topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("process"),
			semconv.MessagingOperationTypeDeliver,
			semconv.MessagingDestinationName(c.topic),
			semconv.MessagingKafkaConsumerGroup(c.groupID),
			semconv.MessagingKafkaMessageOffset(int(msg.Offset)),
			semconv.MessagingDestinationPartitionID(strconv.Itoa(msg.Partition)),
			semconv.MessagingKafkaMessageKey(string(msg.Key)),
			eventTypeAttr(eventType),
		),
	)
	defer span.End()

	err := handler(spanCtx, Message{
		Key:       string(msg.Key),
		EventType: eventType,
		Payload:   msg.Value,
	})

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if c.processed != nil {
		c.processed.Add(ctx, 1, metric.WithAttributes(eventTypeAttr(eventType), attribute.String("outcome", outcome)))
	}

	return err
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
