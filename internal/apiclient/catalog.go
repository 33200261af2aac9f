package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, "catalog.list", http.MethodGet, "/api/products/", "", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) Product(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, "catalog.get", http.MethodGet, fmt.Sprintf("/api/products/%d/", id), "", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
