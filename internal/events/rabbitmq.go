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

// ChannelPool hands out pre-declared channels over one connection.
type ChannelPool struct {
	conn      *amqp.Connection
	channels  chan *amqp.Channel
	mu        sync.Mutex
	closed    bool
	queueName string
	logger    zerolog.Logger
}

func NewChannelPool(url, queueName string, size int, logger zerolog.Logger) (*ChannelPool, error) {
	if size < 1 {
		size = 1
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	pool := &ChannelPool{
		conn:      conn,
		channels:  make(chan *amqp.Channel, size),
		queueName: queueName,
		logger:    logger.With().Str("component", "rabbitmq").Logger(),
	}
	for i := 0; i < size; i++ {
		ch, err := pool.createChannel()
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("create channel %d: %w", i, err)
		}
		pool.channels <- ch
	}

	pool.logger.Info().Int("channels", size).Str("queue", queueName).Msg("rabbitmq channel pool ready")
	return pool, nil
}

func (p *ChannelPool) createChannel() (*amqp.Channel, error) {
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(p.queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return ch, nil
}

func (p *ChannelPool) Get(ctx context.Context) (*amqp.Channel, error) {
	select {
	case ch, ok := <-p.channels:
		if !ok {
			return nil, errors.New("channel pool closed")
		}
		if ch.IsClosed() {
			return p.createChannel()
		}
		return ch, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Put returns ch to the pool, closing it when the pool is full.
func (p *ChannelPool) Put(ch *amqp.Channel) {
	if ch == nil || ch.IsClosed() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		ch.Close()
		return
	}
	select {
	case p.channels <- ch:
	default:
		ch.Close()
	}
}

func (p *ChannelPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.channels)
	for ch := range p.channels {
		ch.Close()
	}
	var err error
	if p.conn != nil {
		err = p.conn.Close()
	}
	p.logger.Info().Msg("rabbitmq channel pool closed")
	return err
}

// RabbitPublisher sends every topic to one durable queue. The topic travels
// in the message type.
type RabbitPublisher struct {
	pool      *ChannelPool
	queueName string
	timeout   time.Duration
}

func NewRabbitPublisher(pool *ChannelPool, queueName string) *RabbitPublisher {
	return &RabbitPublisher{pool: pool, queueName: queueName, timeout: 5 * time.Second}
}

func (p *RabbitPublisher) Publish(ctx context.Context, msg Message) error {
	ch, err := p.pool.Get(ctx)
	if err != nil {
		return fmt.Errorf("get channel: %w", err)
	}
	defer p.pool.Put(ch)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = ch.PublishWithContext(ctx, "", p.queueName, false, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     msg.ID,
		Type:          msg.Topic,
		CorrelationId: msg.Key,
		Timestamp:     time.Now().UTC(),
		Body:          msg.Payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.Topic, err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error { return p.pool.Close() }
