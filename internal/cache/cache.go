package cache

import (
	"context"
	"errors"

	"github.com/fjod/farmfresh/internal/domain"
)

// CatalogCache holds public catalog listings. Entries are never deleted one by one:
// Invalidate moves every reader to a fresh generation of keys.
//
// Get* return the generation they read, also on ErrCacheMiss. A loader passes it
// back to Set*, so rows loaded before an Invalidate land under keys nobody reads.
type CatalogCache interface {
	GetProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, int64, error)
	SetProducts(ctx context.Context, gen int64, filter domain.ProductFilter, products []*domain.Product) error
	GetCategories(ctx context.Context) ([]*domain.Category, int64, error)
	SetCategories(ctx context.Context, gen int64, categories []*domain.Category) error
	Invalidate(ctx context.Context) error
}

var ErrCacheMiss = errors.New("cache miss")
