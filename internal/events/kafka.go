package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: 5 * time.Second,
		},
	}
}

// Publish keys messages by account number so events for one account stay
// ordered within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, ev TransactionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.AccountNumber),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(ev.Event)},
		},
	})
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }
