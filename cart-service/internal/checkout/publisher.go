package checkout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/fjod/storefront/cart-service/internal/domain"
)

const Topic = "checkout-outbox"

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaWriter(brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Publish keys the message by session so one shopper's orders stay on one
// partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event OrderPlaced) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.SessionID),
		Value: payload,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type CartClearer interface {
	ClearCart(ctx context.Context, sessionID string) domain.Summary
}

// DirectPublisher clears the cart in-process. It stands in for the broker
// when none is configured.
type DirectPublisher struct {
	carts CartClearer
}

func NewDirectPublisher(carts CartClearer) *DirectPublisher {
	return &DirectPublisher{carts: carts}
}

func (p *DirectPublisher) Publish(ctx context.Context, event OrderPlaced) error {
	p.carts.ClearCart(ctx, event.SessionID)
	return nil
}
