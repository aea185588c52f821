package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingSender struct {
	mu      sync.Mutex
	sent    []Notification
	closed  bool
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *recordingSender) Send(ctx context.Context, n Notification) error {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return s.err
}

func (s *recordingSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSender) snapshot() ([]Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.sent...), s.closed
}

func TestDispatcher_DeliversAndDrainsOnClose(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, zerolog.Nop())

	orderID := uuid.New()
	require.True(t, d.Dispatch(OrderConfirmation(orderID, "buyer@example.com", decimal.RequireFromString("90"))))
	require.True(t, d.Dispatch(SellerNewOrder(uuid.New(), orderID, 2)))
	require.True(t, d.Dispatch(LowStock(uuid.New(), 3)))

	require.NoError(t, d.Close(context.Background()))

	sent, closed := sender.snapshot()
	require.Len(t, sent, 3)
	assert.Equal(t, KindOrderConfirmation, sent[0].Kind)
	assert.Equal(t, KindSellerNewOrder, sent[1].Kind)
	assert.Equal(t, KindLowStock, sent[2].Kind)
	assert.True(t, closed)
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	sender := &recordingSender{started: make(chan struct{}, 1), release: make(chan struct{})}
	d := NewDispatcher(sender, zerolog.Nop(), WithQueueSize(1))

	require.True(t, d.Dispatch(LowStock(uuid.New(), 1)))
	<-sender.started

	assert.True(t, d.Dispatch(LowStock(uuid.New(), 2)))
	assert.False(t, d.Dispatch(LowStock(uuid.New(), 3)))

	close(sender.release)
	require.NoError(t, d.Close(context.Background()))

	sent, _ := sender.snapshot()
	assert.Len(t, sent, 2)
}

func TestDispatcher_DispatchAfterClose(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, zerolog.Nop())
	require.NoError(t, d.Close(context.Background()))

	assert.False(t, d.Dispatch(LowStock(uuid.New(), 1)))
	assert.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_CloseHonoursContext(t *testing.T) {
	sender := &recordingSender{started: make(chan struct{}, 1), release: make(chan struct{})}
	d := NewDispatcher(sender, zerolog.Nop())

	require.True(t, d.Dispatch(LowStock(uuid.New(), 1)))
	<-sender.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)

	close(sender.release)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_SendErrorsDoNotStopWorker(t *testing.T) {
	sender := &recordingSender{err: errors.New("broker unavailable")}
	d := NewDispatcher(sender, zerolog.Nop(), WithSendTimeout(time.Second))

	d.Dispatch(LowStock(uuid.New(), 1))
	d.Dispatch(LowStock(uuid.New(), 2))
	require.NoError(t, d.Close(context.Background()))

	sent, _ := sender.snapshot()
	assert.Len(t, sent, 2)
}
