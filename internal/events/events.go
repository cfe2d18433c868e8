// Package events publishes outbox records to a message broker.
package events

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"storefront/internal/config"
)

// Message is one outbox record on its way to the broker.
type Message struct {
	ID      string
	Topic   string
	Key     string
	Payload []byte
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// FromConfig picks the broker named by EVENT_BROKER.
func FromConfig(cfg config.Config, logger zerolog.Logger) (Publisher, error) {
	switch cfg.EventBroker {
	case "", "none":
		return Noop{}, nil
	case "rabbitmq":
		pool, err := NewChannelPool(cfg.RabbitMQURL, cfg.RabbitMQQueue, cfg.RabbitMQChannels, logger)
		if err != nil {
			return nil, err
		}
		return NewRabbitPublisher(pool, cfg.RabbitMQQueue), nil
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("KAFKA_BROKERS is required when EVENT_BROKER=kafka")
		}
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	default:
		return nil, fmt.Errorf("unknown event broker %q", cfg.EventBroker)
	}
}

// Noop drops every message. Records are still marked sent.
type Noop struct{}

func (Noop) Publish(context.Context, Message) error { return nil }
func (Noop) Close() error                           { return nil }
