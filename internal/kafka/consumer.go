package kafka

import (
	"context"
	"encoding/json"
	"log"

	"tradehub/internal/models"

	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader}
}

// Start consumes order events until the reader is closed, invoking handler
// for each decoded order.
func (c *Consumer) Start(handler func(order models.Order)) {
	for {
		msg, err := c.reader.ReadMessage(context.Background())
		if err != nil {
			log.Printf("error reading message: %v", err)
			return
		}

		var order models.Order
		if err := json.Unmarshal(msg.Value, &order); err != nil {
			log.Printf("failed to unmarshal order event: %v", err)
			continue
		}

		handler(order)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
