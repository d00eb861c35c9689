package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/fjod/farmfresh/internal/domain"
	"github.com/fjod/farmfresh/internal/repository"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PlaceOrderRequest struct {
	UserID         primitive.ObjectID
	AddressID      string
	Slot           string
	PaymentMethod  string
	IdempotencyKey string
}

type OrderService struct {
	users       repository.UserRepository
	products    repository.ProductRepository
	orders      repository.OrderRepository
	outbox      repository.OutboxRepository
	tx          repository.Transactor
	forwardOnly bool
}

type OrderServiceOption func(*OrderService)

// WithForwardOnlyStatus rejects status updates that move an order backwards.
func WithForwardOnlyStatus(enabled bool) OrderServiceOption {
	return func(s *OrderService) {
		s.forwardOnly = enabled
	}
}

func NewOrderService(
	users repository.UserRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	outbox repository.OutboxRepository,
	tx repository.Transactor,
	opts ...OrderServiceOption) *OrderService {

	s := &OrderService{
		users:    users,
		products: products,
		orders:   orders,
		outbox:   outbox,
		tx:       tx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder turns the user's cart into an order. The order insert, the cart clear
// and the order.placed event are written in one transaction.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (primitive.ObjectID, error) {
	addressID := strings.TrimSpace(req.AddressID)
	slot := strings.TrimSpace(req.Slot)
	if addressID == "" || slot == "" {
		return primitive.NilObjectID, domain.Errorf(domain.ErrInvalidInput, "Address and delivery slot are required")
	}
	if !domain.IsDeliverySlot(slot) {
		return primitive.NilObjectID, domain.Errorf(domain.ErrInvalidInput, "Invalid delivery slot")
	}

	user, err := s.users.GetUser(ctx, req.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return primitive.NilObjectID, domain.Errorf(domain.ErrNotFound, "User not found")
	}
	if err != nil {
		return primitive.NilObjectID, internalError(ctx, "Failed to place order", err)
	}

	// a retry of a placed order finds the cart already empty
	if req.IdempotencyKey != "" {
		existing, err := s.orders.GetOrderByIdempotencyKey(ctx, user.ID, req.IdempotencyKey)
		if err == nil {
			return existing.ID, nil
		}
		if !errors.Is(err, repository.ErrOrderNotFound) {
			return primitive.NilObjectID, internalError(ctx, "Failed to place order", err)
		}
	}

	if len(user.Cart) == 0 {
		return primitive.NilObjectID, domain.Errorf(domain.ErrEmptyCart, "Cart is empty")
	}

	address, ok := findAddress(user, addressID)
	if !ok {
		return primitive.NilObjectID, domain.Errorf(domain.ErrInvalidAddress, "Invalid address")
	}

	items, total, err := s.snapshot(ctx, user.Cart)
	if err != nil {
		return primitive.NilObjectID, err
	}

	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = domain.DefaultPaymentMethod
	}

	order := &domain.Order{
		UserID:         user.ID,
		Items:          items,
		TotalAmount:    total,
		Address:        address.Flatten(),
		Slot:           slot,
		Status:         domain.OrderStatusProcessing,
		PaymentMethod:  paymentMethod,
		IdempotencyKey: req.IdempotencyKey,
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.orders.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := s.users.ClearCart(ctx, user.ID); err != nil {
			return err
		}
		return s.recordEvent(ctx, domain.EventOrderPlaced, order)
	})
	if errors.Is(err, repository.ErrDuplicateOrder) {
		// lost a race with a retry carrying the same key
		existing, errGet := s.orders.GetOrderByIdempotencyKey(ctx, user.ID, req.IdempotencyKey)
		if errGet != nil {
			return primitive.NilObjectID, internalError(ctx, "Failed to place order", errGet)
		}
		return existing.ID, nil
	}
	if err != nil {
		return primitive.NilObjectID, internalError(ctx, "Failed to place order", err)
	}
	return order.ID, nil
}

func findAddress(user *domain.User, rawID string) (domain.Address, bool) {
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return domain.Address{}, false
	}
	return user.FindAddress(id)
}

// snapshot copies names and prices as they are now. Entries for deleted products
// are skipped.
func (s *OrderService) snapshot(ctx context.Context, cart []domain.CartEntry) ([]domain.OrderItem, float64, error) {
	ids := make([]primitive.ObjectID, 0, len(cart))
	for _, e := range cart {
		ids = append(ids, e.ProductID)
	}
	products, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, 0, internalError(ctx, "Failed to place order", err)
	}

	items := make([]domain.OrderItem, 0, len(cart))
	total := decimal.Zero
	for _, e := range cart {
		p, ok := products[e.ProductID]
		if !ok || e.Quantity < 1 {
			continue
		}
		subtotal := decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(e.Quantity)))
		total = total.Add(subtotal)
		items = append(items, domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  e.Quantity,
			Subtotal:  subtotal.InexactFloat64(),
		})
	}
	if len(items) == 0 {
		return nil, 0, domain.Errorf(domain.ErrEmptyCart, "Cart is empty")
	}
	return items, total.InexactFloat64(), nil
}

type orderEvent struct {
	OrderID     string             `json:"orderId"`
	UserID      string             `json:"userId"`
	Status      domain.OrderStatus `json:"status"`
	TotalAmount float64            `json:"totalAmount"`
	Items       []domain.OrderItem `json:"items,omitempty"`
	Slot        string             `json:"slot,omitempty"`
	OccurredAt  time.Time          `json:"occurredAt"`
}

func (s *OrderService) recordEvent(ctx context.Context, eventType string, order *domain.Order) error {
	ev := orderEvent{
		OrderID:     order.ID.Hex(),
		UserID:      order.UserID.Hex(),
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		OccurredAt:  time.Now().UTC(),
	}
	if eventType == domain.EventOrderPlaced {
		ev.Items = order.Items
		ev.Slot = order.Slot
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.outbox.InsertEvent(ctx, &domain.OutboxEvent{
		AggregateID: order.ID.Hex(),
		EventType:   eventType,
		Payload:     payload,
	})
}

// History returns the user's orders, newest first.
func (s *OrderService) History(ctx context.Context, userID primitive.ObjectID) ([]*domain.Order, error) {
	orders, err := s.orders.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, internalError(ctx, "Failed to load orders", err)
	}
	return orders, nil
}

func (s *OrderService) ListAll(ctx context.Context) ([]*domain.OrderWithUser, error) {
	orders, err := s.orders.ListOrdersWithUsers(ctx)
	if err != nil {
		return nil, internalError(ctx, "Failed to load orders", err)
	}
	return orders, nil
}

// UpdateStatus overwrites an order's status and returns it with the owner joined in.
func (s *OrderService) UpdateStatus(
	ctx context.Context,
	orderID primitive.ObjectID,
	status string) (*domain.OrderWithUser, error) {

	next := domain.OrderStatus(status)
	if !next.IsValid() {
		return nil, domain.Errorf(domain.ErrInvalidInput, "Invalid status")
	}

	var notFrom []domain.OrderStatus
	if s.forwardOnly {
		notFrom = next.Later()
		current, err := s.orders.GetOrder(ctx, orderID)
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, domain.Errorf(domain.ErrNotFound, "Order not found")
		}
		if err != nil {
			return nil, internalError(ctx, "Failed to update order", err)
		}
		if !current.Status.CanTransitionTo(next) {
			return nil, domain.Errorf(domain.ErrInvalidInput,
				"Cannot move order from %s to %s", current.Status, next)
		}
	}

	var updated *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.orders.UpdateOrderStatus(ctx, orderID, next, notFrom...)
		if err != nil {
			return err
		}
		return s.recordEvent(ctx, domain.EventOrderStatusChanged, updated)
	})
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "Order not found")
	}
	if errors.Is(err, repository.ErrOrderStatusMoved) {
		return nil, domain.Errorf(domain.ErrInvalidInput, "Order has already moved past %s", next)
	}
	if err != nil {
		return nil, internalError(ctx, "Failed to update order", err)
	}

	var owner *domain.UserRef
	user, err := s.users.GetUser(ctx, updated.UserID)
	switch {
	case err == nil:
		owner = &domain.UserRef{ID: user.ID, Name: user.Name, Email: user.Email}
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, internalError(ctx, "Failed to update order", err)
	}
	return domain.NewOrderWithUser(updated, owner), nil
}
