// Package checkout places demo orders from a session's cart. No payment is
// taken and no stock is reserved.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/storefront/cart-service/internal/domain"
)

var (
	ErrEmptyCart     = errors.New("cart is empty, nothing to checkout")
	ErrPublishFailed = errors.New("failed to publish order")
)

type Carts interface {
	GetCart(ctx context.Context, sessionID string) domain.Summary
}

type Publisher interface {
	Publish(ctx context.Context, event OrderPlaced) error
}

// DefaultIdempotencyTTL is how long a completed order answers repeats of
// its idempotency key.
const DefaultIdempotencyTTL = 24 * time.Hour

type rememberedOrder struct {
	order   *Order
	expires time.Time
}

type expiry struct {
	key     string
	expires time.Time
}

type Service struct {
	carts     Carts
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
	ttl       time.Duration

	sfg singleflight.Group // one attempt per session and key at a time

	mu      sync.Mutex
	orders  map[string]rememberedOrder // by session and idempotency key
	expires []expiry                   // insertion order, so oldest first
}

func NewService(carts Carts, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{
		carts:     carts,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		ttl:       DefaultIdempotencyTTL,
		orders:    make(map[string]rememberedOrder),
	}
}

// PlaceOrder turns the session's cart into an order. A repeated
// idempotencyKey for the same session returns the first completed order
// without publishing again, until the key expires. Failed attempts are not
// remembered, so the shopper can retry with the same key. Concurrent calls
// for one session and key share a single attempt.
func (s *Service) PlaceOrder(ctx context.Context, sessionID, idempotencyKey string) (*Order, error) {
	key := sessionID + "/" + idempotencyKey
	if order, ok := s.remembered(key, idempotencyKey); ok {
		return order, nil
	}

	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		if order, ok := s.remembered(key, idempotencyKey); ok {
			return order, nil
		}
		order, err := s.place(ctx, sessionID)
		if err == nil && idempotencyKey != "" {
			s.remember(key, order)
		}
		return order, err
	})

	order, _ := v.(*Order)
	return order, err
}

func (s *Service) place(ctx context.Context, sessionID string) (*Order, error) {
	summary := s.carts.GetCart(ctx, sessionID)
	if len(summary.Items) == 0 {
		return nil, ErrEmptyCart
	}

	now := s.now()
	snapshot := buildSnapshot(summary, now)
	order := &Order{
		Number:   newOrderNumber(),
		Status:   StatusCompleted,
		Lines:    orderLines(snapshot),
		Snapshot: snapshot,
		PlacedAt: now,
	}

	err := s.publisher.Publish(ctx, OrderPlaced{
		SessionID:   sessionID,
		OrderNumber: order.Number,
		Lines:       order.Lines,
		TotalAmount: snapshot.TotalAmount,
		Currency:    snapshot.Currency,
		PlacedAt:    now,
	})
	if err != nil {
		order.Status = StatusFailed
		s.logger.Error("failed to publish order", zap.String("order_number", order.Number), zap.Error(err))
		return order, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	s.logger.Info("order placed",
		zap.String("order_number", order.Number),
		zap.Int("lines", len(order.Lines)),
		zap.Float64("total_amount", snapshot.TotalAmount))
	return order, nil
}

func (s *Service) remembered(key, idempotencyKey string) (*Order, bool) {
	if idempotencyKey == "" {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	entry, ok := s.orders[key]
	if !ok {
		return nil, false
	}
	s.logger.Info("duplicate checkout request",
		zap.String("idempotency_key", idempotencyKey),
		zap.String("order_number", entry.order.Number))
	return entry.order, true
}

func (s *Service) remember(key string, order *Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expires := s.now().Add(s.ttl)
	s.orders[key] = rememberedOrder{order: order, expires: expires}
	s.expires = append(s.expires, expiry{key: key, expires: expires})
	s.pruneLocked()
}

// pruneLocked drops expired keys. s.mu must be held.
func (s *Service) pruneLocked() {
	now := s.now()
	for len(s.expires) > 0 && !s.expires[0].expires.After(now) {
		head := s.expires[0]
		if entry, ok := s.orders[head.key]; ok && entry.expires.Equal(head.expires) {
			delete(s.orders, head.key)
		}
		s.expires = s.expires[1:]
	}
}

func newOrderNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "SF-" + strings.ToUpper(id[:8])
}
