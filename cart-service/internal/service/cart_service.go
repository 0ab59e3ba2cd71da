package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/storefront/cart-service/internal/catalog"
	"github.com/fjod/storefront/cart-service/internal/domain"
	"github.com/fjod/storefront/cart-service/internal/storage"
	"github.com/fjod/storefront/cart-service/internal/store"
)

var ErrOutOfStock = errors.New("variant is out of stock")

type Catalog interface {
	LookupVariant(ctx context.Context, sku string) (catalog.Variant, error)
}

type session struct {
	mu       sync.Mutex
	store    *store.CartStore
	lastUsed time.Time
	evicted  bool // set under mu once the session has left the registry
}

// CartService keeps one CartStore per shopper session, loaded from storage
// the first time the session is seen. Idle sessions are dropped by EvictIdle
// and reloaded on their next request; every change is already in storage.
type CartService struct {
	storage storage.Storage
	catalog Catalog
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
	sfg      singleflight.Group // collapses concurrent first loads of a session
}

func NewCartService(s storage.Storage, c Catalog, logger *zap.Logger) *CartService {
	return &CartService{
		storage:  s,
		catalog:  c,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

func (s *CartService) GetCart(ctx context.Context, sessionID string) domain.Summary {
	var summary domain.Summary
	s.with(ctx, sessionID, func(cs *store.CartStore) {
		summary = cs.Summary()
	})
	return summary
}

// AddItem resolves sku through the catalog and adds one unit of it.
func (s *CartService) AddItem(ctx context.Context, sessionID, sku string) (domain.Summary, error) {
	v, err := s.catalog.LookupVariant(ctx, sku)
	if err != nil {
		return domain.Summary{}, err
	}
	if !v.InStock {
		return domain.Summary{}, ErrOutOfStock
	}
	return s.AddDetails(ctx, sessionID, v.Details), nil
}

func (s *CartService) AddDetails(ctx context.Context, sessionID string, item domain.ItemDetails) domain.Summary {
	var summary domain.Summary
	s.with(ctx, sessionID, func(cs *store.CartStore) {
		cs.AddItem(item)
		summary = cs.Summary()
	})
	return summary
}

func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, sku string, quantity int) domain.Summary {
	var summary domain.Summary
	s.with(ctx, sessionID, func(cs *store.CartStore) {
		cs.UpdateQuantity(sku, quantity)
		summary = cs.Summary()
	})
	return summary
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID, sku string) domain.Summary {
	var summary domain.Summary
	s.with(ctx, sessionID, func(cs *store.CartStore) {
		cs.RemoveItem(sku)
		summary = cs.Summary()
	})
	return summary
}

func (s *CartService) ClearCart(ctx context.Context, sessionID string) domain.Summary {
	var summary domain.Summary
	s.with(ctx, sessionID, func(cs *store.CartStore) {
		cs.ClearCart()
		summary = cs.Summary()
	})
	return summary
}

// with runs fn while holding the session's lock.
func (s *CartService) with(ctx context.Context, sessionID string, fn func(*store.CartStore)) {
	for {
		sess := s.session(ctx, sessionID)
		sess.mu.Lock()
		if sess.evicted {
			// evicted between lookup and lock, load it again
			sess.mu.Unlock()
			continue
		}
		sess.lastUsed = s.now()
		fn(sess.store)
		sess.mu.Unlock()
		return
	}
}

// EvictIdle drops sessions not used for longer than idle and returns how
// many were dropped. Sessions busy with a request are skipped.
func (s *CartService) EvictIdle(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		if !sess.mu.TryLock() {
			continue
		}
		if sess.lastUsed.Before(cutoff) {
			sess.evicted = true
			delete(s.sessions, id)
			evicted++
		}
		sess.mu.Unlock()
	}
	return evicted
}

// RunEviction calls EvictIdle every interval until ctx is cancelled.
func (s *CartService) RunEviction(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(idle); n > 0 {
				s.logger.Debug("evicted idle sessions", zap.Int("evicted", n), zap.Int("active", s.Sessions()))
			}
		}
	}
}

// Sessions reports how many sessions are held in memory.
func (s *CartService) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *CartService) session(ctx context.Context, sessionID string) *session {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	v, _, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		s.mu.RLock()
		existing, ok := s.sessions[sessionID]
		s.mu.RUnlock()
		if ok {
			return existing, nil
		}

		cs := store.New(s.storage, storage.Key(sessionID), s.logger.With(zap.String("session_id", sessionID)))
		// the load must outlive a single caller's cancellation since
		// every waiter on this flight shares its result
		cs.Init(context.WithoutCancel(ctx))

		loaded := &session{store: cs, lastUsed: s.now()}
		s.mu.Lock()
		s.sessions[sessionID] = loaded
		s.mu.Unlock()
		return loaded, nil
	})

	return v.(*session)
}
