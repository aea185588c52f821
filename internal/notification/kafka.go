package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var producerTracer = otel.Tracer("notification/producer")

// messageWriter is the part of *kafka.Writer the sender uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender publishes notifications as JSON to a Kafka topic, carrying
// the trace context in the message headers.
type KafkaSender struct {
	writer messageWriter
	topic  string
	logger zerolog.Logger
}

// NewKafkaSender creates a sender writing to topic on brokers.
func NewKafkaSender(brokers []string, topic string, logger zerolog.Logger) *KafkaSender {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           100 * time.Millisecond,
	}
	return newKafkaSender(writer, topic, logger)
}

func newKafkaSender(writer messageWriter, topic string, logger zerolog.Logger) *KafkaSender {
	return &KafkaSender{
		writer: writer,
		topic:  topic,
		logger: logger.With().Str("component", "kafka_sender").Logger(),
	}
}

func (s *KafkaSender) Send(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	key := n.Key()
	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	ctx, span := producerTracer.Start(ctx, "send "+s.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(s.topic),
			semconv.MessagingKafkaMessageKey(key),
			attribute.String("notification.kind", string(n.Kind)),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, carrierFor(&msg))

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error().Err(err).Str("kind", string(n.Kind)).Str("key", key).Msg("failed to publish notification")
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	s.logger.Debug().Str("kind", string(n.Kind)).Str("key", key).Msg("notification published")
	return nil
}

func (s *KafkaSender) Close() error {
	return s.writer.Close()
}
