// Package storage persists serialized carts. Each key holds one JSON array of
// cart items which is only ever replaced wholesale.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("cart not found in storage")

const keyPrefix = "storefront-cart:"

type Storage interface {
	// Load returns ErrNotFound when nothing was saved under key.
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Key is the storage key of a shopper session's cart.
func Key(sessionID string) string {
	return keyPrefix + sessionID
}
