package service

import (
	"context"
	"errors"
	"math"

	"github.com/fjod/farmfresh/internal/domain"
	"github.com/fjod/farmfresh/internal/repository"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CartService struct {
	users    repository.UserRepository
	products repository.ProductRepository
}

func NewCartService(users repository.UserRepository, products repository.ProductRepository) *CartService {
	return &CartService{
		users:    users,
		products: products,
	}
}

func (s *CartService) GetCart(ctx context.Context, userID primitive.ObjectID) (*domain.CartView, error) {
	return s.view(ctx, userID)
}

// AddItem adds quantity units of a product, never going past current stock.
// A quantity below 1 counts as 1.
func (s *CartService) AddItem(
	ctx context.Context,
	userID, productID primitive.ObjectID,
	quantity int) (*domain.CartView, error) {

	if quantity < 1 {
		quantity = 1
	}

	product, err := s.getProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Stock < 1 {
		return nil, domain.Errorf(domain.ErrOutOfStock, "%s is out of stock", product.Name)
	}

	for attempt := 0; attempt < maxCartAttempts; attempt++ {
		user, err := s.getUser(ctx, userID)
		if err != nil {
			return nil, err
		}

		expected := 0
		next := min(quantity, product.Stock)
		if entry, ok := user.FindEntry(productID); ok {
			expected = entry.Quantity
			next = min(entry.Quantity+quantity, product.Stock)
		}

		err = s.users.SetCartQuantity(ctx, userID, productID, expected, next)
		if errors.Is(err, repository.ErrCartConflict) {
			continue
		}
		if err != nil {
			return nil, s.cartWriteError(ctx, err)
		}
		return s.view(ctx, userID)
	}
	return nil, internalError(ctx, "Failed to update cart", repository.ErrCartConflict)
}

// UpdateQuantity sets the quantity of an entry already in the cart. A quantity of
// zero or less removes the entry; anything else is floored and clamped to [1, stock].
func (s *CartService) UpdateQuantity(
	ctx context.Context,
	userID, productID primitive.ObjectID,
	quantity float64) (*domain.CartView, error) {

	if math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return nil, domain.Errorf(domain.ErrInvalidInput, "Quantity must be a number")
	}

	for attempt := 0; attempt < maxCartAttempts; attempt++ {
		user, err := s.getUser(ctx, userID)
		if err != nil {
			return nil, err
		}

		entry, ok := user.FindEntry(productID)
		if !ok {
			return nil, domain.Errorf(domain.ErrNotFound, "Item not found in cart")
		}

		if quantity <= 0 {
			if err := s.users.RemoveCartEntry(ctx, userID, productID); err != nil {
				return nil, s.cartWriteError(ctx, err)
			}
			return s.view(ctx, userID)
		}

		product, err := s.getProduct(ctx, productID)
		if err != nil {
			return nil, err
		}

		err = s.users.SetCartQuantity(ctx, userID, productID, entry.Quantity, clampQuantity(quantity, product.Stock))
		if errors.Is(err, repository.ErrCartConflict) {
			continue
		}
		if err != nil {
			return nil, s.cartWriteError(ctx, err)
		}
		return s.view(ctx, userID)
	}
	return nil, internalError(ctx, "Failed to update cart", repository.ErrCartConflict)
}

// RemoveItem is idempotent: removing an absent product still returns the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) (*domain.CartView, error) {
	if err := s.users.RemoveCartEntry(ctx, userID, productID); err != nil {
		return nil, s.cartWriteError(ctx, err)
	}
	return s.view(ctx, userID)
}

// clampQuantity floors q and bounds it to [1, stock]. With no stock left the
// upper bound is still 1.
func clampQuantity(q float64, stock int) int {
	upper := max(stock, 1)
	n := math.Floor(q)
	if n < 1 {
		return 1
	}
	if n > float64(upper) {
		return upper
	}
	return int(n)
}

func (s *CartService) view(ctx context.Context, userID primitive.ObjectID) (*domain.CartView, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(user.Cart))
	for _, e := range user.Cart {
		ids = append(ids, e.ProductID)
	}
	products, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, internalError(ctx, "Failed to load cart", err)
	}

	return buildCartView(user.Cart, products), nil
}

// buildCartView prices the cart against current products. Entries whose product
// is gone are left out.
func buildCartView(entries []domain.CartEntry, products map[primitive.ObjectID]*domain.Product) *domain.CartView {
	v := &domain.CartView{Items: make([]domain.CartLine, 0, len(entries))}
	total := decimal.Zero

	for _, e := range entries {
		p, ok := products[e.ProductID]
		if !ok || e.Quantity < 1 {
			continue
		}

		subtotal := decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(e.Quantity)))
		total = total.Add(subtotal)

		v.Items = append(v.Items, domain.CartLine{
			Product: domain.ProductSummary{
				ID:       p.ID,
				Name:     p.Name,
				Price:    p.Price,
				Image:    p.Image,
				Category: p.Category,
				Stock:    p.Stock,
			},
			Quantity: e.Quantity,
			Subtotal: subtotal.InexactFloat64(),
		})
	}

	v.TotalAmount = total.InexactFloat64()
	return v
}

func (s *CartService) getUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "User not found")
	}
	if err != nil {
		return nil, internalError(ctx, "Failed to load user", err)
	}
	return user, nil
}

func (s *CartService) getProduct(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	product, err := s.products.GetProduct(ctx, id)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "Product not found")
	}
	if err != nil {
		return nil, internalError(ctx, "Failed to load product", err)
	}
	return product, nil
}

func (s *CartService) cartWriteError(ctx context.Context, err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return domain.Errorf(domain.ErrNotFound, "User not found")
	}
	return internalError(ctx, "Failed to update cart", err)
}
