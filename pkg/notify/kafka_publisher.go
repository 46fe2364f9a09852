package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
)

var (
	brokerList = []string{"localhost:9092"}
	topic      = "qbook-updates"
	configMu   sync.Mutex
)

// SetBrokerList overrides the Kafka broker list used by new publishers
func SetBrokerList(brokers []string) {
	configMu.Lock()
	defer configMu.Unlock()
	brokerList = brokers
}

// SetTopic overrides the topic book updates are published to
func SetTopic(t string) {
	configMu.Lock()
	defer configMu.Unlock()
	topic = t
}

// KafkaPublisher publishes book updates to Kafka with a synchronous producer
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher creates a publisher connected to the configured brokers
func NewKafkaPublisher() (*KafkaPublisher, error) {
	configMu.Lock()
	brokers := brokerList
	t := topic
	configMu.Unlock()

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaPublisher{
		producer: producer,
		topic:    t,
	}, nil
}

// PublishBookUpdate sends the update to the configured topic, keyed by
// instrument so updates for one book stay ordered within a partition.
func (p *KafkaPublisher) PublishBookUpdate(_ context.Context, u *BookUpdate) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal book update: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(u.Instrument),
		Value: sarama.ByteEncoder(data),
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send book update: %w", err)
	}

	return nil
}

// Close closes the underlying producer
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
