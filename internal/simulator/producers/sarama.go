package producers

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/chrisdamba/cleanbotsim/internal/models"
)

type SaramaProducer struct {
	producer    sarama.SyncProducer
	topicPrefix string
}

// NewSaramaConfig returns the producer settings used for simulation topics
func NewSaramaConfig() *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = "cleanbotsim"
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Retry.Backoff = 100 * time.Millisecond
	saramaConfig.Producer.Return.Successes = true // Must be true for SyncProducer
	saramaConfig.Net.DialTimeout = 30 * time.Second
	saramaConfig.Net.ReadTimeout = 30 * time.Second
	saramaConfig.Net.WriteTimeout = 30 * time.Second
	return saramaConfig
}

func NewSaramaProducer(config *models.Config) (*SaramaProducer, error) {
	brokerList := strings.Split(config.KafkaBrokerList, ",")

	producer, err := sarama.NewSyncProducer(brokerList, NewSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Sarama producer: %w", err)
	}

	log.Printf("Sarama producer created successfully with brokers %v", brokerList)
	return NewSaramaProducerFrom(producer, config.KafkaTopicPrefix), nil
}

// NewSaramaProducerFrom wraps an existing sync producer
func NewSaramaProducerFrom(producer sarama.SyncProducer, topicPrefix string) *SaramaProducer {
	return &SaramaProducer{producer: producer, topicPrefix: topicPrefix}
}

func (s *SaramaProducer) WriteMessage(topic string, msg []byte) error {
	return s.WriteKeyedMessage(topic, "", msg)
}

// WriteKeyedMessage sends msg with key so every event of a run lands on the
// same partition. An empty key leaves partitioning to the producer.
func (s *SaramaProducer) WriteKeyedMessage(topic, key string, msg []byte) error {
	if s.producer == nil {
		return fmt.Errorf("Sarama producer is not initialized")
	}

	pm := &sarama.ProducerMessage{
		Topic: s.topicPrefix + topic,
		Value: sarama.ByteEncoder(msg),
	}
	if key != "" {
		pm.Key = sarama.StringEncoder(key)
	}
	_, _, err := s.producer.SendMessage(pm)
	if err != nil {
		log.Printf("Failed to send message to topic %s: %v", s.topicPrefix+topic, err)
		return err
	}

	return nil
}

func (s *SaramaProducer) Close() error {
	if s.producer != nil {
		err := s.producer.Close()
		s.producer = nil
		return err
	}
	return nil
}
