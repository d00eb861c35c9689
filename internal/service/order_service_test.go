package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fjod/farmfresh/internal/domain"
	"github.com/fjod/farmfresh/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type orderFixture struct {
	svc      *OrderService
	users    *mockUserRepository
	products *mockProductRepository
	orders   *mockOrderRepository
	outbox   *mockOutboxRepository
	tx       *mockTransactor
	user     *domain.User
	address  domain.Address
	apple    *domain.Product
	banana   *domain.Product
}

func newOrderFixture(t *testing.T, opts ...OrderServiceOption) *orderFixture {
	t.Helper()
	apple := &domain.Product{ID: primitive.NewObjectID(), Name: "Apple", Price: 50, Stock: 5}
	banana := &domain.Product{ID: primitive.NewObjectID(), Name: "Banana", Price: 20, Stock: 10}
	address := domain.Address{ID: primitive.NewObjectID(), Line1: "1 Farm Rd", City: "Springfield", Zip: "12345"}
	user := &domain.User{
		ID:        primitive.NewObjectID(),
		Name:      "Ann",
		Email:     "ann@example.com",
		Cart:      []domain.CartEntry{{ProductID: apple.ID, Quantity: 2}, {ProductID: banana.ID, Quantity: 3}},
		Addresses: []domain.Address{address},
	}

	f := &orderFixture{
		users:    newMockUserRepository(user),
		products: newMockProductRepository(apple, banana),
		orders:   &mockOrderRepository{},
		outbox:   &mockOutboxRepository{},
		tx:       &mockTransactor{},
		user:     user,
		address:  address,
		apple:    apple,
		banana:   banana,
	}
	f.svc = NewOrderService(f.users, f.products, f.orders, f.outbox, f.tx, opts...)
	return f
}

func (f *orderFixture) request() PlaceOrderRequest {
	return PlaceOrderRequest{UserID: f.user.ID, AddressID: f.address.ID.Hex(), Slot: "slot-9-12"}
}

func TestPlaceOrder_Success(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	id, err := f.svc.PlaceOrder(ctx, f.request())
	require.NoError(t, err)
	assert.False(t, id.IsZero())

	require.Len(t, f.orders.orders, 1)
	order := f.orders.orders[0]
	assert.Equal(t, id, order.ID)
	assert.Equal(t, 160.0, order.TotalAmount)
	assert.Equal(t, "1 Farm Rd, Springfield", order.Address)
	assert.Equal(t, "slot-9-12", order.Slot)
	assert.Equal(t, domain.OrderStatusProcessing, order.Status)
	assert.Equal(t, domain.DefaultPaymentMethod, order.PaymentMethod)
	require.Len(t, order.Items, 2)
	assert.Equal(t, domain.OrderItem{ProductID: f.apple.ID, Name: "Apple", Price: 50, Quantity: 2, Subtotal: 100}, order.Items[0])

	assert.Empty(t, f.users.cart(f.user.ID))
	assert.Equal(t, 1, f.tx.calls)

	require.Len(t, f.outbox.events, 1)
	ev := f.outbox.events[0]
	assert.Equal(t, domain.EventOrderPlaced, ev.EventType)
	assert.Equal(t, id.Hex(), ev.AggregateID)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, id.Hex(), payload["orderId"])
	assert.Equal(t, 160.0, payload["totalAmount"])
}

func TestPlaceOrder_SnapshotIsImmutable(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.svc.PlaceOrder(ctx, f.request())
	require.NoError(t, err)

	f.products.setPrice(f.apple.ID, 999, "Golden Apple")

	history, err := f.svc.History(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Apple", history[0].Items[0].Name)
	assert.Equal(t, 50.0, history[0].Items[0].Price)
	assert.Equal(t, 160.0, history[0].TotalAmount)
}

func TestPlaceOrder_PaymentMethod(t *testing.T) {
	f := newOrderFixture(t)
	req := f.request()
	req.PaymentMethod = "CARD"

	_, err := f.svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "CARD", f.orders.orders[0].PaymentMethod)
}

func TestPlaceOrder_Preconditions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *orderFixture, req *PlaceOrderRequest)
		want   error
	}{
		{"missing address", func(_ *orderFixture, r *PlaceOrderRequest) { r.AddressID = "" }, domain.ErrInvalidInput},
		{"missing slot", func(_ *orderFixture, r *PlaceOrderRequest) { r.Slot = " " }, domain.ErrInvalidInput},
		{"unknown slot", func(_ *orderFixture, r *PlaceOrderRequest) { r.Slot = "slot-midnight" }, domain.ErrInvalidInput},
		{"unknown user", func(_ *orderFixture, r *PlaceOrderRequest) { r.UserID = primitive.NewObjectID() }, domain.ErrNotFound},
		{"empty cart", func(f *orderFixture, _ *PlaceOrderRequest) { f.users.users[f.user.ID].Cart = nil }, domain.ErrEmptyCart},
		{"foreign address", func(_ *orderFixture, r *PlaceOrderRequest) { r.AddressID = primitive.NewObjectID().Hex() }, domain.ErrInvalidAddress},
		{"malformed address", func(_ *orderFixture, r *PlaceOrderRequest) { r.AddressID = "nope" }, domain.ErrInvalidAddress},
		// empty cart is checked before the address
		{"empty cart and bad address", func(f *orderFixture, r *PlaceOrderRequest) {
			f.users.users[f.user.ID].Cart = nil
			r.AddressID = "nope"
		}, domain.ErrEmptyCart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t)
			req := f.request()
			tt.mutate(f, &req)
			cartBefore := f.users.cart(f.user.ID)

			_, err := f.svc.PlaceOrder(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.orders.orders)
			assert.Equal(t, cartBefore, f.users.cart(f.user.ID))
		})
	}
}

func TestPlaceOrder_AllProductsDeleted(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	require.NoError(t, f.products.DeleteProduct(ctx, f.apple.ID))
	require.NoError(t, f.products.DeleteProduct(ctx, f.banana.ID))

	_, err := f.svc.PlaceOrder(ctx, f.request())
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.Empty(t, f.orders.orders)
}

func TestPlaceOrder_SkipsDeletedProducts(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	require.NoError(t, f.products.DeleteProduct(ctx, f.apple.ID))

	_, err := f.svc.PlaceOrder(ctx, f.request())
	require.NoError(t, err)
	require.Len(t, f.orders.orders[0].Items, 1)
	assert.Equal(t, 60.0, f.orders.orders[0].TotalAmount)
}

func TestPlaceOrder_IdempotencyKey(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	req := f.request()
	req.IdempotencyKey = "retry-1"

	first, err := f.svc.PlaceOrder(ctx, req)
	require.NoError(t, err)

	// the first placement emptied the cart; the retry still gets the order back
	require.Empty(t, f.users.cart(f.user.ID))
	second, err := f.svc.PlaceOrder(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, f.orders.orders, 1)
}

func TestPlaceOrder_IdempotencyKeyDoesNotReplaceNewCart(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	req := f.request()
	req.IdempotencyKey = "retry-1"

	first, err := f.svc.PlaceOrder(ctx, req)
	require.NoError(t, err)

	f.users.users[f.user.ID].Cart = []domain.CartEntry{{ProductID: f.apple.ID, Quantity: 1}}
	second, err := f.svc.PlaceOrder(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, f.orders.orders, 1)
	assert.Len(t, f.users.cart(f.user.ID), 1)
}

func TestPlaceOrder_IdempotencyKeyRetryWithRemovedAddress(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	req := f.request()
	req.IdempotencyKey = "retry-2"

	first, err := f.svc.PlaceOrder(ctx, req)
	require.NoError(t, err)

	f.users.users[f.user.ID].Addresses = nil
	second, err := f.svc.PlaceOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPlaceOrder_DuplicateKeyRace(t *testing.T) {
	f := newOrderFixture(t)
	existing := &domain.Order{ID: primitive.NewObjectID(), UserID: f.user.ID, IdempotencyKey: "race"}

	// the lookup misses, then the insert collides with a concurrent request
	f.orders.createErr = repository.ErrDuplicateOrder
	f.svc.tx = &racingTransactor{orders: f.orders, existing: existing}

	req := f.request()
	req.IdempotencyKey = "race"
	id, err := f.svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, id)
}

// racingTransactor inserts a competing order before running fn.
type racingTransactor struct {
	orders   *mockOrderRepository
	existing *domain.Order
}

func (r *racingTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.orders.m.Lock()
	r.orders.orders = append(r.orders.orders, r.existing)
	r.orders.m.Unlock()
	return fn(ctx)
}

func TestPlaceOrder_StoreFailure(t *testing.T) {
	f := newOrderFixture(t)
	f.outbox.err = errors.New("disk full")

	_, err := f.svc.PlaceOrder(context.Background(), f.request())
	assert.ErrorIs(t, err, domain.ErrInternal)
	assert.Equal(t, "Failed to place order", err.Error())
}

func TestUpdateStatus(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	id, err := f.svc.PlaceOrder(ctx, f.request())
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(ctx, id, "Delivered")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, updated.Status)
	require.NotNil(t, updated.User)
	assert.Equal(t, "Ann", updated.User.Name)
	assert.Equal(t, "ann@example.com", updated.User.Email)

	require.Len(t, f.outbox.events, 2)
	assert.Equal(t, domain.EventOrderStatusChanged, f.outbox.events[1].EventType)

	// backwards is allowed unless forward-only is on
	back, err := f.svc.UpdateStatus(ctx, id, "Processing")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, back.Status)
}

func TestUpdateStatus_Errors(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	id, err := f.svc.PlaceOrder(ctx, f.request())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, id, "Shipped")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.UpdateStatus(ctx, primitive.NewObjectID(), "Delivered")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateStatus_ForwardOnly(t *testing.T) {
	f := newOrderFixture(t, WithForwardOnlyStatus(true))
	ctx := context.Background()
	id, err := f.svc.PlaceOrder(ctx, f.request())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, id, "Out for Delivery")
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, id, "Processing")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.UpdateStatus(ctx, id, "Delivered")
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, primitive.NewObjectID(), "Delivered")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateStatus_ForwardOnlyConcurrentUpdate(t *testing.T) {
	f := newOrderFixture(t, WithForwardOnlyStatus(true))
	ctx := context.Background()
	id, err := f.svc.PlaceOrder(ctx, f.request())
	require.NoError(t, err)

	// another admin delivers the order between the status check and the write
	f.orders.afterGet = func() {
		_, err := f.orders.UpdateOrderStatus(ctx, id, domain.OrderStatusDelivered)
		require.NoError(t, err)
	}

	_, err = f.svc.UpdateStatus(ctx, id, "Out for Delivery")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	stored, err := f.orders.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, stored.Status)
}

func TestUpdateStatus_OwnerDeleted(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	id, err := f.svc.PlaceOrder(ctx, f.request())
	require.NoError(t, err)
	delete(f.users.users, f.user.ID)

	updated, err := f.svc.UpdateStatus(ctx, id, "Delivered")
	require.NoError(t, err)
	assert.Nil(t, updated.User)
}

func TestHistoryAndListAll(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	first, err := f.svc.PlaceOrder(ctx, f.request())
	require.NoError(t, err)
	f.users.users[f.user.ID].Cart = []domain.CartEntry{{ProductID: f.banana.ID, Quantity: 1}}
	second, err := f.svc.PlaceOrder(ctx, f.request())
	require.NoError(t, err)

	history, err := f.svc.History(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second, history[0].ID)
	assert.Equal(t, first, history[1].ID)

	all, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	f.orders.err = errors.New("timeout")
	_, err = f.svc.History(ctx, f.user.ID)
	assert.ErrorIs(t, err, domain.ErrInternal)
}
