// Package store holds a shopper's cart in memory and writes every change
// through to storage.
//
// A CartStore is single-writer: it does no locking of its own. Callers that
// share one between goroutines must serialize access.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fjod/storefront/cart-service/internal/domain"
	"github.com/fjod/storefront/cart-service/internal/storage"
)

const DefaultPersistTimeout = 2 * time.Second

type CartStore struct {
	storage        storage.Storage
	key            string
	logger         *zap.Logger
	persistTimeout time.Duration

	items []domain.CartItem
}

// New returns an empty store bound to key. Call Init to rehydrate it.
func New(s storage.Storage, key string, logger *zap.Logger) *CartStore {
	return &CartStore{
		storage:        s,
		key:            key,
		logger:         logger.With(zap.String("cart_key", key)),
		persistTimeout: DefaultPersistTimeout,
	}
}

// Init replaces the in-memory cart with the persisted one. Missing,
// unreadable or malformed data leaves the cart empty; nothing is returned
// because none of those cases should reach the shopper.
func (s *CartStore) Init(ctx context.Context) {
	s.items = nil

	data, err := s.storage.Load(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("failed to load cart, starting empty", zap.Error(err))
		return
	}

	var persisted []domain.CartItem
	if err := json.Unmarshal(data, &persisted); err != nil {
		s.logger.Warn("discarding malformed cart", zap.Error(err))
		return
	}

	s.items = sanitize(persisted, s.logger)
}

// AddItem increments the line for item.SKU, or appends a new line with
// quantity 1. An existing line keeps its original name, price and image.
// Items without a SKU or with a negative price are ignored, as Init would
// drop them again on reload.
func (s *CartStore) AddItem(item domain.ItemDetails) {
	if !validLine(item.SKU, item.Price) {
		s.logger.Warn("rejecting invalid cart item", zap.String("sku", item.SKU), zap.Float64("price", item.Price))
		return
	}
	if i := s.indexOf(item.SKU); i >= 0 {
		s.items[i].Quantity++
	} else {
		s.items = append(s.items, item.WithQuantity(1))
	}
	s.persist()
}

// RemoveItem deletes the line for sku. Unknown SKUs are ignored.
func (s *CartStore) RemoveItem(sku string) {
	i := s.indexOf(sku)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.persist()
}

// UpdateQuantity sets the quantity of sku's line. A quantity of zero or less
// removes the line. Unknown SKUs are ignored.
func (s *CartStore) UpdateQuantity(sku string, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(sku)
		return
	}
	i := s.indexOf(sku)
	if i < 0 {
		return
	}
	s.items[i].Quantity = quantity
	s.persist()
}

func (s *CartStore) ClearCart() {
	s.items = nil
	s.persist()
}

// Items returns a copy of the cart lines in the order they were added.
func (s *CartStore) Items() []domain.CartItem {
	out := make([]domain.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *CartStore) TotalItems() int {
	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

func (s *CartStore) TotalPrice() float64 {
	return lineTotal(s.items).InexactFloat64()
}

func (s *CartStore) Summary() domain.Summary {
	return domain.Summary{
		Items:      s.Items(),
		TotalItems: s.TotalItems(),
		TotalPrice: s.TotalPrice(),
	}
}

func (s *CartStore) indexOf(sku string) int {
	for i := range s.items {
		if s.items[i].SKU == sku {
			return i
		}
	}
	return -1
}

// persist writes the whole cart before returning. Failures are logged only:
// the in-memory cart stays authoritative for this process.
func (s *CartStore) persist() {
	items := s.items
	if items == nil {
		items = []domain.CartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		s.logger.Error("failed to encode cart", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()
	if err := s.storage.Save(ctx, s.key, data); err != nil {
		s.logger.Warn("failed to persist cart", zap.Error(err))
	}
}

// sanitize drops lines that break cart invariants and folds duplicate SKUs
// into the first line carrying them.
func sanitize(items []domain.CartItem, logger *zap.Logger) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if item.Quantity < 1 || !validLine(item.SKU, item.Price) {
			logger.Warn("dropping invalid cart line", zap.String("sku", item.SKU), zap.Int("quantity", item.Quantity))
			continue
		}
		if i, ok := index[item.SKU]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.SKU] = len(out)
		out = append(out, item)
	}
	return out
}

func validLine(sku string, price float64) bool {
	return sku != "" && price >= 0
}

func lineTotal(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
