package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	w writer
}

func NewProducer(brokers []string) *Producer {
	return newProducerWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	})
}

func newProducerWithWriter(w writer) *Producer {
	return &Producer{w: w}
}

// Publish message to topic, messages with the same key go to the same partition
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	}); err != nil {
		return fmt.Errorf("kafka publish error: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.w.Close()
}
