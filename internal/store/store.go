// Package store is the client's persistent key-value storage: cart contents,
// the auth token and the per-brand shuffle orders survive restarts here.
//
// Writes are last-writer-wins. Two processes sharing one store can overwrite
// each other's snapshot without any conflict detection.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("store: key not found")

const (
	KeyCart          = "cartItems"
	KeyToken         = "token"
	KeySelectedBrand = "shopSelectedBrand"
	keyShopOrder     = "shopOrder:"
)

// ShopOrderKey is the key holding the persisted shuffle for brand.
func ShopOrderKey(brand string) string {
	return keyShopOrder + brand
}

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

func GetJSON(ctx context.Context, s Store, key string, dst any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("store: decode %s: %w", key, err)
	}
	return nil
}

func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
