package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/farmfresh/internal/cache"
	"github.com/fjod/farmfresh/internal/domain"
	"github.com/fjod/farmfresh/internal/imagestore"
	"github.com/fjod/farmfresh/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"
)

// ProductInput is a create or partial update as submitted by the admin form.
// Numbers arrive as text and are coerced; nil fields are not part of the update.
type ProductInput struct {
	Name        *string
	Category    *string
	Description *string
	Price       *string
	Stock       *string
	ImageURL    *string
	ImageData   []byte
}

type CatalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	cache      cache.CatalogCache
	images     imagestore.Store
	sfg        singleflight.Group // Prevents cache stampede
}

func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	catalogCache cache.CatalogCache,
	images imagestore.Store) *CatalogService {

	return &CatalogService{
		products:   products,
		categories: categories,
		cache:      catalogCache,
		images:     images,
	}
}

// ListProducts is the admin listing: category "all" or empty means every category.
func (s *CatalogService) ListProducts(ctx context.Context, search, category string) ([]*domain.Product, error) {
	filter := domain.ProductFilter{Search: strings.TrimSpace(search)}
	if c := strings.TrimSpace(category); c != "" && !strings.EqualFold(c, "all") {
		filter.Categories = []string{c}
	}

	products, err := s.products.ListProducts(ctx, filter)
	if err != nil {
		return nil, internalError(ctx, "Failed to load products", err)
	}
	return products, nil
}

// PublicProducts serves the storefront listing through the catalog cache.
// categories is a comma separated list.
func (s *CatalogService) PublicProducts(ctx context.Context, search, categories string) ([]*domain.Product, error) {
	filter := domain.ProductFilter{Search: strings.TrimSpace(search)}
	for _, c := range strings.Split(categories, ",") {
		if c = strings.TrimSpace(c); c != "" {
			filter.Categories = append(filter.Categories, c)
		}
	}

	v, err, _ := s.sfg.Do("products:"+filter.Search+"\x00"+strings.Join(filter.Categories, ","), func() (interface{}, error) {
		products, gen, err := s.cache.GetProducts(ctx, filter)
		if err == nil {
			return products, nil
		}
		miss := errors.Is(err, cache.ErrCacheMiss)
		if !miss {
			slog.WarnContext(ctx, "catalog cache get failed", "error", err)
		}

		products, err = s.products.ListProducts(ctx, filter)
		if err != nil {
			return nil, err
		}
		if miss {
			if errSet := s.cache.SetProducts(ctx, gen, filter, products); errSet != nil {
				slog.WarnContext(ctx, "catalog cache set failed", "error", errSet)
			}
		}
		return products, nil
	})
	if err != nil {
		return nil, internalError(ctx, "Failed to load products", err)
	}
	return v.([]*domain.Product), nil
}

func (s *CatalogService) PublicCategories(ctx context.Context) ([]*domain.Category, error) {
	v, err, _ := s.sfg.Do("categories", func() (interface{}, error) {
		categories, gen, err := s.cache.GetCategories(ctx)
		if err == nil {
			return categories, nil
		}
		miss := errors.Is(err, cache.ErrCacheMiss)
		if !miss {
			slog.WarnContext(ctx, "catalog cache get failed", "error", err)
		}

		categories, err = s.categories.ListCategories(ctx)
		if err != nil {
			return nil, err
		}
		if miss {
			if errSet := s.cache.SetCategories(ctx, gen, categories); errSet != nil {
				slog.WarnContext(ctx, "catalog cache set failed", "error", errSet)
			}
		}
		return categories, nil
	})
	if err != nil {
		return nil, internalError(ctx, "Failed to load categories", err)
	}
	return v.([]*domain.Category), nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	name, category := trimmed(in.Name), trimmed(in.Category)
	if name == "" || category == "" {
		return nil, domain.Errorf(domain.ErrInvalidInput, "Name and category are required")
	}

	image, err := s.resolveImage(ctx, in)
	if err != nil {
		return nil, err
	}

	product := &domain.Product{
		Name:        name,
		Category:    category,
		Description: trimmed(in.Description),
		Price:       coercePrice(in.Price),
		Stock:       coerceStock(in.Stock),
	}
	if image != nil {
		product.Image = *image
	}

	if err := s.products.CreateProduct(ctx, product); err != nil {
		return nil, internalError(ctx, "Failed to create product", err)
	}
	s.invalidate(ctx)
	return product, nil
}

// UpdateProduct changes only the fields present in the input.
func (s *CatalogService) UpdateProduct(ctx context.Context, id primitive.ObjectID, in ProductInput) (*domain.Product, error) {
	var update domain.ProductUpdate
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.Errorf(domain.ErrInvalidInput, "Name cannot be empty")
		}
		update.Name = &name
	}
	if in.Category != nil {
		category := strings.TrimSpace(*in.Category)
		if category == "" {
			return nil, domain.Errorf(domain.ErrInvalidInput, "Category cannot be empty")
		}
		update.Category = &category
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		update.Description = &description
	}
	if in.Price != nil {
		price := coercePrice(in.Price)
		update.Price = &price
	}
	if in.Stock != nil {
		stock := coerceStock(in.Stock)
		update.Stock = &stock
	}

	image, err := s.resolveImage(ctx, in)
	if err != nil {
		return nil, err
	}
	update.Image = image

	product, err := s.products.UpdateProduct(ctx, id, update)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "Product not found")
	}
	if err != nil {
		return nil, internalError(ctx, "Failed to update product", err)
	}
	s.invalidate(ctx)
	return product, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	err := s.products.DeleteProduct(ctx, id)
	if errors.Is(err, repository.ErrProductNotFound) {
		return domain.Errorf(domain.ErrNotFound, "Product not found")
	}
	if err != nil {
		return internalError(ctx, "Failed to delete product", err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, internalError(ctx, "Failed to load categories", err)
	}
	return categories, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, name, description string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Errorf(domain.ErrInvalidInput, "Category name is required")
	}

	category := &domain.Category{Name: name, Description: strings.TrimSpace(description)}
	err := s.categories.CreateCategory(ctx, category)
	if errors.Is(err, repository.ErrDuplicateCategory) {
		return nil, domain.Errorf(domain.ErrDuplicateCategory, "Category already exists")
	}
	if err != nil {
		return nil, internalError(ctx, "Failed to create category", err)
	}
	s.invalidate(ctx)
	return category, nil
}

func (s *CatalogService) UpdateCategory(
	ctx context.Context,
	id primitive.ObjectID,
	name, description string) (*domain.Category, error) {

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Errorf(domain.ErrInvalidInput, "Category name is required")
	}

	category, err := s.categories.UpdateCategory(ctx, id, name, strings.TrimSpace(description))
	switch {
	case errors.Is(err, repository.ErrDuplicateCategory):
		return nil, domain.Errorf(domain.ErrDuplicateCategory, "Category already exists")
	case errors.Is(err, repository.ErrCategoryNotFound):
		return nil, domain.Errorf(domain.ErrNotFound, "Category not found")
	case err != nil:
		return nil, internalError(ctx, "Failed to update category", err)
	}
	s.invalidate(ctx)
	return category, nil
}

// DeleteCategory leaves products in that category as they are.
func (s *CatalogService) DeleteCategory(ctx context.Context, id primitive.ObjectID) error {
	err := s.categories.DeleteCategory(ctx, id)
	if errors.Is(err, repository.ErrCategoryNotFound) {
		return domain.Errorf(domain.ErrNotFound, "Category not found")
	}
	if err != nil {
		return internalError(ctx, "Failed to delete category", err)
	}
	s.invalidate(ctx)
	return nil
}

// resolveImage prefers an uploaded file over a URL. It returns nil when neither was sent.
func (s *CatalogService) resolveImage(ctx context.Context, in ProductInput) (*string, error) {
	if len(in.ImageData) > 0 {
		uri, err := s.images.Save(ctx, in.ImageData)
		switch {
		case errors.Is(err, imagestore.ErrTooLarge):
			return nil, domain.Errorf(domain.ErrInvalidInput, "Image must be 5 MB or smaller")
		case errors.Is(err, imagestore.ErrNotImage), errors.Is(err, imagestore.ErrEmpty):
			return nil, domain.Errorf(domain.ErrInvalidInput, "Uploaded file is not an image")
		case err != nil:
			return nil, internalError(ctx, "Failed to store image", err)
		}
		return &uri, nil
	}
	if in.ImageURL != nil {
		url := strings.TrimSpace(*in.ImageURL)
		return &url, nil
	}
	return nil, nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Invalidate(ctx); err != nil {
		slog.WarnContext(ctx, "catalog cache invalidate failed", "error", err)
	}
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// coercePrice parses a price; anything unparsable, non-finite or negative becomes 0.
func coercePrice(s *string) float64 {
	f, err := strconv.ParseFloat(trimmed(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// coerceStock parses a stock count, truncating fractions; invalid input becomes 0.
func coerceStock(s *string) int {
	f, err := strconv.ParseFloat(trimmed(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}
