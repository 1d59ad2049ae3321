package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	TopicProducts   = "product_events"
	TopicOrders     = "order_events"
	TopicInvoices   = "invoice_events"
	TopicSlaughters = "slaughter_events"
)

// Producer publishes domain events after successful mutations. Consumers
// are downstream reporting jobs; the core never depends on them.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: w}, nil
}

// PublishEvent marshals the event and writes it to topic, keyed so that
// events of one aggregate land on one partition. Every event carries a
// generated eventId.
func (p *Producer) PublishEvent(ctx context.Context, topic, key string, event map[string]any) error {
	event["eventId"] = uuid.NewString()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
