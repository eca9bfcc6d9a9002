package kafka_client

import (
	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/spacesedan/sentiscope/config"
)

// ProducerConfigMap returns the librdkafka settings for the record producer.
func ProducerConfigMap(cfg config.KafkaConfig) *kafka.ConfigMap {
	return &kafka.ConfigMap{
		"bootstrap.servers":   cfg.Broker,
		"security.protocol":   "PLAINTEXT", // Force PLAINTEXT
		"api.version.request": "true",      // Ensure correct API version request
		"enable.idempotence":  true,
		"acks":                "all",
		"client.id":           PRODUCER_CLIENT_ID,
	}
}
