package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"metals-dashboard/internal/models"
)

// Producer publishes price and alert events to Kafka for downstream
// consumers such as notification services.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishAlertTriggered publishes an alert-triggered event.
func (p *Producer) PublishAlertTriggered(ctx context.Context, alert *models.Alert, latest *models.PriceTick, message string) error {
	event := models.PriceEvent{
		EventType: models.EventAlertTriggered,
		Ticker:    alert.Ticker,
		Price:     latest.Price,
		Alert:     alert,
		Message:   message,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, alert.Ticker, event)
}

// PublishPriceUpdated publishes a price update event.
func (p *Producer) PublishPriceUpdated(ctx context.Context, tick *models.PriceTick) error {
	event := models.PriceEvent{
		EventType: models.EventPriceUpdated,
		Ticker:    tick.Ticker,
		Price:     tick.Price,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, tick.Ticker, event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.PriceEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
