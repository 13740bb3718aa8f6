package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/spotdexlabs/spotdex/pkg/dex/engine"
)

// Producer publishes executed fills to a Kafka topic, keyed by token symbol
// so consumers see per-token fills in execution order.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// PublishFill writes one fill to the topic.
func (p *Producer) PublishFill(ctx context.Context, f engine.Fill) error {
	value, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal fill: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(f.Token),
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
