package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	callCount := 0
	bus.Subscribe(func(event *Event) error {
		received = event
		callCount++
		return nil
	}, EventBookingCreated)

	err := bus.PublishJSON(EventBookingCreated, BookingEventPayload{BookingID: 7, Status: "WAITING"})
	require.NoError(t, err)
	assert.Equal(t, 1, callCount)
	require.NotNil(t, received)
	assert.Equal(t, EventBookingCreated, received.Type)
	assert.False(t, received.CreatedAt.IsZero())

	var decoded BookingEventPayload
	require.NoError(t, json.Unmarshal(received.Payload, &decoded))
	assert.Equal(t, int64(7), decoded.BookingID)

	// не подписанный тип
	require.NoError(t, bus.PublishJSON(EventCommentAdded, CommentEventPayload{CommentID: 1}))
	assert.Equal(t, 1, callCount)
}

func TestEventBus_MultipleTypesAndErrors(t *testing.T) {
	bus := NewEventBus()
	var seen []string
	bus.Subscribe(func(e *Event) error { seen = append(seen, e.Type); return nil }, AllEventTypes...)
	bus.Subscribe(func(_ *Event) error { return errors.New("broker down") }, EventBookingApproved)

	require.NoError(t, bus.PublishJSON(EventBookingCreated, map[string]int{"a": 1}))
	err := bus.PublishJSON(EventBookingApproved, map[string]int{"a": 1})
	assert.EqualError(t, err, "broker down")
	assert.Equal(t, []string{EventBookingCreated, EventBookingApproved}, seen)
}

func TestEventBus_NilAndBadPayload(t *testing.T) {
	var nilBus *EventBus
	assert.NoError(t, nilBus.PublishJSON(EventBookingCreated, nil))

	bus := NewEventBus()
	assert.Error(t, bus.PublishJSON(EventBookingCreated, make(chan int)))
}

func TestLogHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	err := LogHandler(&logger)(&Event{Type: EventCommentAdded, Payload: []byte(`{"comment_id":3}`)})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"event_type":"comment_added"`)
	assert.Contains(t, buf.String(), `"comment_id":3`)
}

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(exchange, key, msg).Error(0)
}

func (m *mockChannel) Close() error {
	return m.Called().Error(0)
}

func TestAMQPPublisher_Publish(t *testing.T) {
	ch := new(mockChannel)
	logger := zerolog.Nop()
	p := newAMQPPublisher(ch, "shareit.events", &logger, RetryPolicy{}, 1)

	created := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	event := &Event{Type: EventBookingApproved, Payload: []byte(`{"booking_id":1}`), CreatedAt: created}

	ch.On("PublishWithContext", "", "shareit.events", mock.MatchedBy(func(msg amqp.Publishing) bool {
		return msg.Type == EventBookingApproved &&
			msg.ContentType == "application/json" &&
			msg.DeliveryMode == amqp.Persistent &&
			msg.Timestamp.Equal(created) &&
			string(msg.Body) == `{"booking_id":1}`
	})).Return(nil).Once()
	require.NoError(t, p.publish(event))

	ch.On("PublishWithContext", "", "shareit.events", mock.Anything).Return(errors.New("closed")).Once()
	err := p.publish(event)
	assert.ErrorContains(t, err, "amqp publish booking_approved")
	ch.AssertExpectations(t)
}

func TestAMQPPublisher_PublishRetries(t *testing.T) {
	ch := new(mockChannel)
	logger := zerolog.Nop()
	var slept []time.Duration
	p := newAMQPPublisher(ch, "shareit.events", &logger, RetryPolicy{MaxRetries: 2, InitialDelay: 10 * time.Millisecond, BackoffFactor: 2}, 1)
	p.sleep = func(d time.Duration) { slept = append(slept, d) }
	event := &Event{Type: EventCommentAdded, Payload: []byte(`{}`), CreatedAt: time.Now()}

	ch.On("PublishWithContext", "", "shareit.events", mock.Anything).Return(errors.New("flow control")).Twice()
	ch.On("PublishWithContext", "", "shareit.events", mock.Anything).Return(nil).Once()
	require.NoError(t, p.publish(event))
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, slept)

	ch.On("PublishWithContext", "", "shareit.events", mock.Anything).Return(errors.New("closed")).Times(3)
	assert.Error(t, p.publish(event))
	ch.AssertExpectations(t)
}

// blockingChannel держит каждую публикацию до закрытия release
type blockingChannel struct {
	entered   chan struct{}
	release   chan struct{}
	mu        sync.Mutex
	published []string
}

func newBlockingChannel() *blockingChannel {
	return &blockingChannel{entered: make(chan struct{}, 10), release: make(chan struct{})}
}

func (c *blockingChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.entered <- struct{}{}
	<-c.release
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, msg.Type)
	return nil
}

func (c *blockingChannel) Close() error {
	return nil
}

func TestAMQPPublisher_ForwardDoesNotWaitForBroker(t *testing.T) {
	ch := newBlockingChannel()
	logger := zerolog.Nop()
	p := newAMQPPublisher(ch, "shareit.events", &logger, RetryPolicy{}, 1)
	p.start()

	require.NoError(t, p.Forward(&Event{Type: EventBookingCreated}))
	select {
	case <-ch.entered:
	case <-time.After(time.Second):
		t.Fatal("event was not picked up")
	}

	// брокер висит, но Forward возвращается сразу
	returned := make(chan error, 1)
	go func() { returned <- p.Forward(&Event{Type: EventBookingApproved}) }()
	select {
	case err := <-returned:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Forward blocked on a stalled broker")
	}

	close(ch.release)
	require.NoError(t, p.Close())
	assert.Equal(t, []string{EventBookingCreated, EventBookingApproved}, ch.published)
	assert.ErrorIs(t, p.Forward(&Event{Type: EventCommentAdded}), ErrForwarderClosed)
}

func TestAMQPPublisher_ForwardQueueFull(t *testing.T) {
	ch := newBlockingChannel()
	close(ch.release)
	logger := zerolog.Nop()
	p := newAMQPPublisher(ch, "shareit.events", &logger, RetryPolicy{}, 1)

	require.NoError(t, p.Forward(&Event{Type: EventBookingCreated}))
	assert.ErrorIs(t, p.Forward(&Event{Type: EventBookingApproved}), ErrForwardQueueFull)

	p.start()
	require.NoError(t, p.Close())
	assert.Equal(t, []string{EventBookingCreated}, ch.published)
}

func TestRetryPolicy_NextDelay(t *testing.T) {
	tests := []struct {
		name    string
		policy  RetryPolicy
		attempt int
		want    time.Duration
	}{
		{"first attempt", RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2}, 1, time.Second},
		{"third attempt", RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2}, 3, 4 * time.Second},
		{"clamped", RetryPolicy{InitialDelay: time.Second, BackoffFactor: 10, MaxDelay: 5 * time.Second}, 3, 5 * time.Second},
		{"defaults", RetryPolicy{}, 2, 200 * time.Millisecond},
		{"attempt below one", RetryPolicy{InitialDelay: time.Second}, 0, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.NextDelay(tt.attempt))
		})
	}
}
