package pkg

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaProducer publishes entity lifecycle events. Keys are entity ids so
// events for one entity stay ordered within a partition.
type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(cfg KafkaConfig) (*KafkaProducer, error) {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	return &KafkaProducer{writer: w}, nil
}

func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// SendEvent publishes one event keyed by the entity id.
func (p *KafkaProducer) SendEvent(ctx context.Context, entityID uint64, payload []byte) error {
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(entityID, 10)),
		Value: payload,
	}
	return p.writer.WriteMessages(ctx, msg)
}
