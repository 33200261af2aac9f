package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Skotchmaster/storefront/internal/transport"
)

func (c *Client) GetCart(ctx context.Context, token string) ([]transport.CartItem, error) {
	var items []transport.CartItem
	if err := c.do(ctx, "cart.get", http.MethodGet, "/api/cart/cart/", token, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) AddCartItem(ctx context.Context, token string, productID int64, quantity int) (*transport.CartItem, error) {
	var item transport.CartItem
	err := c.do(ctx, "cart.add", http.MethodPost, "/api/cart/cart/", token, transport.AddCartItemRequest{
		ProductID: productID,
		Quantity:  quantity,
	}, &item)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) DeleteCartItem(ctx context.Context, token string, itemID int64) error {
	return c.do(ctx, "cart.delete", http.MethodDelete, fmt.Sprintf("/api/cart/cart/%d/", itemID), token, nil, nil)
}
