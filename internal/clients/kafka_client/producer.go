package kafka_client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/spacesedan/sentiscope/config"
	"github.com/spacesedan/sentiscope/internal/clients/kafka_client/utils"
	"github.com/spacesedan/sentiscope/internal/models"
)

// Producer is the subset of *kafka.Producer the recorder needs.
type Producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

// KafkaRecorder publishes analysis records to a topic, one message per
// record keyed by record id.
type KafkaRecorder struct {
	producer Producer
	topic    string
}

func NewKafkaRecorder(cfg config.KafkaConfig) (*KafkaRecorder, error) {
	slog.Info("[KafkaClient] Initializing Kafka Producer...",
		slog.String("broker", cfg.Broker),
		slog.String("topic", cfg.Topic))

	p, err := kafka.NewProducer(ProducerConfigMap(cfg))
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] Failed to create producer: %w", err)
	}

	slog.Info("[KafkaClient] Kafka Producer initialized successfully")
	return NewKafkaRecorderWithProducer(p, cfg.Topic), nil
}

func NewKafkaRecorderWithProducer(p Producer, topic string) *KafkaRecorder {
	return &KafkaRecorder{producer: p, topic: topic}
}

// Record produces every record and waits for their delivery reports.
func (r *KafkaRecorder) Record(ctx context.Context, records []models.AnalysisRecord) error {
	deliveries := make(chan kafka.Event, len(records))

	produced := 0
	for _, record := range records {
		msg, err := r.message(record)
		if err != nil {
			return err
		}

		for i := 0; i < MAX_RETRIES; i++ {
			err = r.producer.Produce(msg, deliveries)
			if err == nil {
				break
			}
			slog.Warn("[KafkaClient] Failed to produce message, retrying...",
				slog.Int("attempt", i+1),
				slog.String("error", err.Error()))
			time.Sleep(RETRY_DELAY)
		}
		if err != nil {
			return fmt.Errorf("[KafkaClient] failed to produce record %s: %w", record.ID, err)
		}
		produced++
	}

	var failed int
	for i := 0; i < produced; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-deliveries:
			if m, ok := ev.(*kafka.Message); ok && m.TopicPartition.Error != nil {
				failed++
				slog.Warn("[KafkaClient] Delivery failed",
					slog.String("key", string(m.Key)),
					slog.String("error", m.TopicPartition.Error.Error()))
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("[KafkaClient] %d of %d records not delivered", failed, produced)
	}

	slog.Debug("[KafkaClient] Published analysis records",
		slog.String("topic", r.topic),
		slog.Int("count", produced))
	return nil
}

func (r *KafkaRecorder) message(record models.AnalysisRecord) (*kafka.Message, error) {
	value, err := utils.SerializeToJSON(record)
	if err != nil {
		return nil, err
	}
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &r.topic, Partition: kafka.PartitionAny},
		Key:            []byte(record.ID),
		Value:          value,
		Headers: []kafka.Header{
			{Key: "source", Value: []byte(record.Source)},
		},
	}, nil
}

func (r *KafkaRecorder) Close() {
	slog.Info("[KafkaClient] Flushing Kafka producer before shutdown...")
	if remaining := r.producer.Flush(FLUSH_TIMEOUT_MS); remaining > 0 {
		slog.Warn("[KafkaClient] Not all messages were delivered before shutdown",
			slog.Int("remaining", remaining))
	}
	r.producer.Close()
	slog.Info("[KafkaClient] Kafka producer shut down")
}
