package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNotificationKey(t *testing.T) {
	orderID := uuid.New()
	productID := uuid.New()

	assert.Equal(t, orderID.String(), OrderConfirmation(orderID, "a@b.c", decimal.Zero).Key())
	assert.Equal(t, orderID.String(), SellerNewOrder(uuid.New(), orderID, 1).Key())
	assert.Equal(t, productID.String(), LowStock(productID, 0).Key())

	bare := Notification{ID: uuid.New()}
	assert.Equal(t, bare.ID.String(), bare.Key())
}

func TestOrderConfirmation_FormatsTotal(t *testing.T) {
	n := OrderConfirmation(uuid.New(), "buyer@example.com", decimal.RequireFromString("225"))

	assert.Equal(t, "buyer@example.com", n.Recipient)
	assert.Equal(t, "225.00", n.Data["total"])
}

func TestHeaderCarrier(t *testing.T) {
	msg := &kafka.Message{}
	c := carrierFor(msg)

	c.Set("traceparent", "one")
	c.Set("baggage", "k=v")
	c.Set("traceparent", "two")

	assert.Equal(t, "two", c.Get("traceparent"))
	assert.Equal(t, "k=v", c.Get("baggage"))
	assert.Empty(t, c.Get("missing"))
	assert.ElementsMatch(t, []string{"traceparent", "baggage"}, c.Keys())
	assert.Len(t, msg.Headers, 2)
}

func TestKafkaSender_Send(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	otel.SetTextMapPropagator(propagation.TraceContext{})

	writer := &fakeWriter{}
	sender := newKafkaSender(writer, "order.notifications", zerolog.Nop())

	orderID := uuid.New()
	n := OrderConfirmation(orderID, "buyer@example.com", decimal.RequireFromString("90"))
	require.NoError(t, sender.Send(context.Background(), n))

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, orderID.String(), string(msg.Key))
	assert.NotEmpty(t, carrierFor(&msg).Get("traceparent"))

	var decoded Notification
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, KindOrderConfirmation, decoded.Kind)
	assert.Equal(t, "buyer@example.com", decoded.Recipient)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "send order.notifications", spans[0].Name())
	assert.Equal(t, trace.SpanKindProducer, spans[0].SpanKind())

	require.NoError(t, sender.Close())
	assert.True(t, writer.closed)
}

func TestKafkaSender_WriteError(t *testing.T) {
	boom := errors.New("leader not available")
	sender := newKafkaSender(&fakeWriter{err: boom}, "order.notifications", zerolog.Nop())

	err := sender.Send(context.Background(), LowStock(uuid.New(), 2))
	assert.ErrorIs(t, err, boom)
}

func TestLogSender(t *testing.T) {
	sender := NewLogSender(zerolog.Nop())

	assert.NoError(t, sender.Send(context.Background(), LowStock(uuid.New(), 2)))
	assert.NoError(t, sender.Send(context.Background(), Notification{Kind: KindSellerNewOrder}))
	assert.NoError(t, sender.Close())
}
