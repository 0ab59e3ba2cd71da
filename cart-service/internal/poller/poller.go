// Package poller consumes order events and empties the ordering session's
// cart.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/fjod/storefront/cart-service/internal/checkout"
	"github.com/fjod/storefront/cart-service/internal/domain"
)

const GroupID = "cart-service-consumer"

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type CartClearer interface {
	ClearCart(ctx context.Context, sessionID string) domain.Summary
}

type Poller struct {
	reader     MessageReader
	carts      CartClearer
	logger     *zap.Logger
	retryDelay time.Duration
}

func NewReader(brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    checkout.Topic,
		GroupID:  GroupID,
		MaxBytes: 10e6, // 10MB
	})
}

func NewPoller(reader MessageReader, carts CartClearer, logger *zap.Logger) *Poller {
	return &Poller{
		reader:     reader,
		carts:      carts,
		logger:     logger,
		retryDelay: time.Second,
	}
}

// Run reads until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			p.logger.Warn("error reading message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.retryDelay):
			}
			continue
		}
		p.handleMessage(ctx, m)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Warn("error closing reader", zap.Error(err))
	}
}

func (p *Poller) handleMessage(ctx context.Context, m kafka.Message) {
	var event checkout.OrderPlaced
	if err := json.Unmarshal(m.Value, &event); err != nil {
		p.logger.Warn("error parsing message", zap.Int64("offset", m.Offset), zap.Error(err))
		return
	}
	if event.SessionID == "" {
		p.logger.Warn("missing session_id", zap.Int64("offset", m.Offset))
		return
	}

	p.carts.ClearCart(ctx, event.SessionID)
	p.logger.Info("cart cleared after order",
		zap.String("session_id", event.SessionID),
		zap.String("order_number", event.OrderNumber))
}
