package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	publishTimeout = 5 * time.Second
	forwardBuffer  = 256
)

var (
	ErrForwarderClosed  = errors.New("amqp forwarder closed")
	ErrForwardQueueFull = errors.New("amqp forward queue full")
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher forwards bus events to a durable RabbitMQ queue. Forward only
// enqueues; a single goroutine publishes, so broker outages never block callers.
type AMQPPublisher struct {
	conn    *amqp.Connection
	ch      amqpChannel
	queue   string
	logger  *zerolog.Logger
	retry   RetryPolicy
	sleep   func(time.Duration)
	pending chan *Event
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// DialAMQP connects to the broker, declares the queue and starts publishing.
func DialAMQP(url, queue string, logger *zerolog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp queue declare: %w", err)
	}

	p := newAMQPPublisher(ch, queue, logger, DefaultForwardRetry, forwardBuffer)
	p.conn = conn
	p.start()
	return p, nil
}

func newAMQPPublisher(ch amqpChannel, queue string, logger *zerolog.Logger, retry RetryPolicy, buffer int) *AMQPPublisher {
	return &AMQPPublisher{
		ch:      ch,
		queue:   queue,
		logger:  logger,
		retry:   retry,
		sleep:   time.Sleep,
		pending: make(chan *Event, buffer),
		done:    make(chan struct{}),
	}
}

func (p *AMQPPublisher) start() {
	go func() {
		defer close(p.done)
		for event := range p.pending {
			if err := p.publish(event); err != nil {
				p.logger.Error().Err(err).Str("event_type", event.Type).Msg("event dropped")
			}
		}
	}()
}

// Forward is an EventHandler: subscribe it to the bus to mirror events to the queue.
// It never waits for the broker; a full buffer drops the event with ErrForwardQueueFull.
func (p *AMQPPublisher) Forward(event *Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrForwarderClosed
	}

	select {
	case p.pending <- event:
		return nil
	default:
		return fmt.Errorf("forward %s: %w", event.Type, ErrForwardQueueFull)
	}
}

func (p *AMQPPublisher) publish(event *Event) error {
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         event.Type,
		Timestamp:    event.CreatedAt.UTC(),
		Body:         event.Payload,
	}

	var err error
	for attempt := 0; attempt <= p.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.retry.NextDelay(attempt)
			p.logger.Warn().Err(err).Str("event_type", event.Type).Int("attempt", attempt).Dur("delay", delay).Msg("retrying amqp publish")
			if p.sleep != nil {
				p.sleep(delay)
			}
		}
		if err = p.publishOnce(msg); err == nil {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("amqp publish %s: %w", event.Type, err)
	}

	p.logger.Debug().Str("event_type", event.Type).Str("queue", p.queue).Msg("event forwarded")
	return nil
}

func (p *AMQPPublisher) publishOnce(msg amqp.Publishing) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg)
}

// Close stops accepting events, publishes what is already queued and closes the channel.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.pending)
	}
	p.mu.Unlock()
	<-p.done

	var err error
	if p.ch != nil {
		err = p.ch.Close()
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
