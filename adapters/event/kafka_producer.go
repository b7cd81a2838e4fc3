package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/internal/config"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

const TopicContentEvents = "content.events"

type KafkaProducerClient struct {
	ContentEventsWriter *kafka.Writer
	logger              logger.Logger
}

var _ service.ContentPublisher = (*KafkaProducerClient)(nil)

func NewKafkaProducerClient(cfg config.Config, log logger.Logger) (*KafkaProducerClient, error) {
	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		return nil, fmt.Errorf("config Kafka brokers not found")
	}

	// writer 'content.events'
	contentWriter := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicContentEvents,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}

	log.Info("Initialize Kafka Producers successfully.")

	return &KafkaProducerClient{ContentEventsWriter: contentWriter, logger: log}, nil
}

// PublishContentEvent keys messages by collection so events of one
// collection stay ordered.
func (c *KafkaProducerClient) PublishContentEvent(ctx context.Context, ev service.ContentEvent) error {
	msg, err := EncodeContentEvent(ev)
	if err != nil {
		return err
	}
	if err := c.ContentEventsWriter.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write content event: %w", err)
	}
	return nil
}

func (c *KafkaProducerClient) Close() {
	if c.ContentEventsWriter != nil {
		if err := c.ContentEventsWriter.Close(); err != nil {
			c.logger.Error("Failed to close content events writer", err)
		}
	}
	c.logger.Info("Closed Kafka Producers")
}

func EncodeContentEvent(ev service.ContentEvent) (kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal content event: %w", err)
	}
	return kafka.Message{Key: []byte(ev.Collection), Value: value}, nil
}

func DecodeContentEvent(msg kafka.Message) (service.ContentEvent, error) {
	var ev service.ContentEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return ev, fmt.Errorf("failed to unmarshal content event: %w", err)
	}
	return ev, nil
}
