package kafka

import (
	"context"
	"encoding/json"

	"tradehub/internal/config"
	"tradehub/internal/models"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer}
}

func (p *Producer) Publish(topic, key string, value []byte) error {
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// OrderEvents publishes order lifecycle events. Orders marshal without their
// stored hash, so no OTP material ever reaches the bus.
type OrderEvents struct {
	Producer *Producer
	Topics   config.TopicConfig
}

func NewOrderEvents(producer *Producer, topics config.TopicConfig) *OrderEvents {
	return &OrderEvents{Producer: producer, Topics: topics}
}

func (e *OrderEvents) PublishOrderPlaced(order models.Order) error {
	msgBytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return e.Producer.Publish(e.Topics.OrderPlaced, order.ID, msgBytes)
}

func (e *OrderEvents) PublishOrderCompleted(order models.Order) error {
	msgBytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return e.Producer.Publish(e.Topics.OrderCompleted, order.ID, msgBytes)
}

// NoopPublisher is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderPlaced(models.Order) error    { return nil }
func (NoopPublisher) PublishOrderCompleted(models.Order) error { return nil }
