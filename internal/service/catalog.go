package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/store"
)

type SortOrder string

const (
	SortDefault   SortOrder = "default"
	SortPriceLow  SortOrder = "price-low"
	SortPriceHigh SortOrder = "price-high"
	SortName      SortOrder = "name"
	SortRandom    SortOrder = "random"
)

func ParseSort(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "", SortDefault:
		return SortDefault, nil
	case SortPriceLow, SortPriceHigh, SortName, SortRandom:
		return o, nil
	default:
		return "", apperr.Validation("catalog.sort", fmt.Sprintf("unknown sort %q", s),
			apperr.FieldError{Field: "sort", Message: "must be one of default, price-low, price-high, name, random"})
	}
}

type Filter struct {
	Search   string
	Category string
	Brand    string
	Sort     SortOrder
}

// ProductSearcher is a full-text index over the catalog.
type ProductSearcher interface {
	Search(ctx context.Context, query string, from, size int) (search.Results, error)
}

type CatalogService struct {
	api          CatalogAPI
	store        store.Store
	shuffler     *Shuffler
	searcher     ProductSearcher
	defaultBrand string
	log          *slog.Logger

	fetches singleflight.Group
}

// NewCatalogService builds the catalog accessor. searcher may be nil, in
// which case Search filters a fresh product list.
func NewCatalogService(api CatalogAPI, st store.Store, shuffler *Shuffler, searcher ProductSearcher, defaultBrand string, log *slog.Logger) *CatalogService {
	return &CatalogService{
		api:          api,
		store:        st,
		shuffler:     shuffler,
		searcher:     searcher,
		defaultBrand: defaultBrand,
		log:          log.With("component", "catalog"),
	}
}

// fetch loads the full product list. Concurrent callers share one request;
// nothing is cached past it.
func (c *CatalogService) fetch(ctx context.Context) ([]models.Product, error) {
	v, err, shared := c.fetches.Do("products", func() (any, error) {
		return c.api.Products(ctx)
	})
	if err != nil {
		c.log.Warn("catalog_fetch_failed", "error", err)
		return nil, err
	}
	if shared {
		c.log.Debug("catalog_fetch_shared")
	}
	return slices.Clone(v.([]models.Product)), nil
}

func (c *CatalogService) ListProducts(ctx context.Context, f Filter) ([]models.Product, error) {
	products, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	// The random order covers the whole brand listing so a filtered view
	// never narrows the persisted record.
	if f.Sort == SortRandom {
		key := f.Brand
		if key == "" {
			key = "all"
		}
		products = c.shuffler.Apply(ctx, key, applyFilter(products, Filter{Brand: f.Brand}))
		return applyFilter(products, Filter{Search: f.Search, Category: f.Category}), nil
	}
	products = applyFilter(products, f)

	switch f.Sort {
	case "", SortDefault:
	case SortPriceLow:
		slices.SortStableFunc(products, func(a, b models.Product) int {
			return a.EffectivePrice().Cmp(b.EffectivePrice())
		})
	case SortPriceHigh:
		slices.SortStableFunc(products, func(a, b models.Product) int {
			return b.EffectivePrice().Cmp(a.EffectivePrice())
		})
	case SortName:
		fold := cases.Fold()
		slices.SortStableFunc(products, func(a, b models.Product) int {
			return strings.Compare(fold.String(a.Name), fold.String(b.Name))
		})
	default:
		return nil, apperr.Validation("catalog.list", fmt.Sprintf("unknown sort %q", f.Sort))
	}
	return products, nil
}

func applyFilter(products []models.Product, f Filter) []models.Product {
	q := strings.TrimSpace(f.Search)
	var needle string
	if q != "" {
		needle = cases.Fold().String(q)
	}

	out := products[:0]
	for _, p := range products {
		if needle != "" && !strings.Contains(cases.Fold().String(p.Name), needle) {
			continue
		}
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if f.Brand != "" && !strings.EqualFold(p.Brand(), f.Brand) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (c *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if id <= 0 {
		return nil, apperr.Validation("catalog.get", "product id must be positive")
	}
	p, err := c.api.Product(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("catalog.get", fmt.Sprintf("product %d", id))
		}
		return nil, err
	}
	return p, nil
}

// Brands lists the distinct brand labels, sorted.
func (c *CatalogService) Brands(ctx context.Context) ([]string, error) {
	return c.distinct(ctx, models.Product.Brand)
}

func (c *CatalogService) Categories(ctx context.Context) ([]string, error) {
	return c.distinct(ctx, func(p models.Product) string { return p.Category })
}

func (c *CatalogService) distinct(ctx context.Context, key func(models.Product) string) ([]string, error) {
	products, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, p := range products {
		k := key(p)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	slices.Sort(out)
	return out, nil
}

// SelectedBrand returns the persisted brand choice, or the default brand.
func (c *CatalogService) SelectedBrand(ctx context.Context) string {
	raw, err := c.store.Get(ctx, store.KeySelectedBrand)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.log.Warn("selected_brand_load_failed", "error", err)
		}
		return c.defaultBrand
	}
	if b := strings.TrimSpace(string(raw)); b != "" {
		return b
	}
	return c.defaultBrand
}

func (c *CatalogService) SelectBrand(ctx context.Context, brand string) error {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return apperr.Validation("catalog.select_brand", "brand is required")
	}
	return c.store.Set(ctx, store.KeySelectedBrand, []byte(brand))
}

// Search runs a full-text query when an index is configured and falls back
// to a case-insensitive name match on a fresh product list otherwise, or
// when the index fails.
func (c *CatalogService) Search(ctx context.Context, query string, page, size int) ([]models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("catalog.search", "search query is required")
	}
	from, size := search.Page(page, size)

	if c.searcher != nil {
		res, err := c.searcher.Search(ctx, query, from, size)
		if err == nil {
			return res.Items, nil
		}
		c.log.Warn("catalog_search_index_failed", "query", query, "error", err)
	}

	products, err := c.ListProducts(ctx, Filter{Search: query, Sort: SortName})
	if err != nil {
		return nil, err
	}
	if from >= len(products) {
		return []models.Product{}, nil
	}
	end := min(from+size, len(products))
	return products[from:end], nil
}
