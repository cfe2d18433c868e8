package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes to one topic keyed by aggregate id so events for the
// same order stay in one partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	return p.writer.WriteMessages(ctx, kafkaMessage(msg, time.Now().UTC()))
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

func kafkaMessage(msg Message, at time.Time) kafka.Message {
	return kafka.Message{
		Key:   []byte(msg.Key),
		Value: msg.Payload,
		Time:  at,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(msg.ID)},
			{Key: "event_type", Value: []byte(msg.Topic)},
		},
	}
}
