package repository

import (
	"context"
	"errors"

	"github.com/fjod/farmfresh/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	collectionUsers      = "users"
	collectionProducts   = "products"
	collectionCategories = "categories"
	collectionOrders     = "orders"
	collectionOutbox     = "outbox"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrProductNotFound   = errors.New("product not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateOrder    = errors.New("order for this idempotency key already exists")
	ErrOrderStatusMoved  = errors.New("order status changed concurrently")
	ErrAddressNotFound   = errors.New("address not found")
	ErrCartConflict      = errors.New("cart entry changed concurrently")
)

// UserRepository owns the user document, including its embedded cart and addresses.
// The cart is only changed through the compare-and-set style methods below.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	SetRole(ctx context.Context, id primitive.ObjectID, role domain.Role) error

	// SetCartQuantity writes quantity for productID only if the entry currently holds
	// expected (0 meaning "no entry"). It returns ErrCartConflict otherwise.
	SetCartQuantity(ctx context.Context, userID, productID primitive.ObjectID, expected, quantity int) error
	RemoveCartEntry(ctx context.Context, userID, productID primitive.ObjectID) error
	ClearCart(ctx context.Context, userID primitive.ObjectID) error

	AddAddress(ctx context.Context, userID primitive.ObjectID, address domain.Address) error
	RemoveAddress(ctx context.Context, userID, addressID primitive.ObjectID) error
}

type ProductRepository interface {
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	GetProducts(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	UpdateProduct(ctx context.Context, id primitive.ObjectID, update domain.ProductUpdate) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id primitive.ObjectID) error
}

type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	CreateCategory(ctx context.Context, category *domain.Category) error
	UpdateCategory(ctx context.Context, id primitive.ObjectID, name, description string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id primitive.ObjectID) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id primitive.ObjectID) (*domain.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, userID primitive.ObjectID, key string) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID primitive.ObjectID) ([]*domain.Order, error)
	ListOrdersWithUsers(ctx context.Context) ([]*domain.OrderWithUser, error)
	// UpdateOrderStatus leaves the order alone and returns ErrOrderStatusMoved when its
	// current status is one of notFrom.
	UpdateOrderStatus(
		ctx context.Context,
		id primitive.ObjectID,
		status domain.OrderStatus,
		notFrom ...domain.OrderStatus) (*domain.Order, error)
	// ScanSalesRecords streams every order through fn.
	ScanSalesRecords(ctx context.Context, fn func(domain.SalesRecord) error) error
}

type OutboxRepository interface {
	InsertEvent(ctx context.Context, event *domain.OutboxEvent) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id string) error
}

// Transactor runs fn inside a single transaction. Repository calls made with the
// ctx passed to fn take part in it.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
