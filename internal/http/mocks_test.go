package http

import (
	"context"
	"sync"

	"github.com/fjod/farmfresh/internal/domain"
	"github.com/fjod/farmfresh/internal/service"
	"github.com/fjod/farmfresh/internal/session"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeAuth struct {
	m          sync.Mutex
	sessions   map[string]*session.Session
	registered []service.RegisterRequest
	loginErr   error
	loggedOut  []string
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (*session.Session, error) {
	f.m.Lock()
	defer f.m.Unlock()
	s, ok := f.sessions[token]
	if !ok {
		return nil, domain.Errorf(domain.ErrUnauthorized, "Invalid or expired token")
	}
	return s, nil
}

func (f *fakeAuth) Register(_ context.Context, req service.RegisterRequest) (*domain.User, error) {
	f.m.Lock()
	defer f.m.Unlock()
	f.registered = append(f.registered, req)
	return &domain.User{ID: primitive.NewObjectID(), Name: req.Name, Email: req.Email, Role: domain.RoleUser}, nil
}

func (f *fakeAuth) Login(_ context.Context, email, _ string) (*service.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &service.LoginResult{Token: "token-for-" + email, User: &domain.User{Email: email}}, nil
}

func (f *fakeAuth) Logout(_ context.Context, sessionID string) error {
	f.m.Lock()
	defer f.m.Unlock()
	f.loggedOut = append(f.loggedOut, sessionID)
	return nil
}

type fakeAccount struct {
	user      *domain.User
	addresses []domain.Address
	added     []service.AddressInput
	removed   []string
	err       error
}

func (f *fakeAccount) Profile(context.Context, primitive.ObjectID) (*domain.User, error) {
	return f.user, f.err
}

func (f *fakeAccount) ListAddresses(context.Context, primitive.ObjectID) ([]domain.Address, error) {
	return f.addresses, f.err
}

func (f *fakeAccount) AddAddress(_ context.Context, _ primitive.ObjectID, in service.AddressInput) ([]domain.Address, error) {
	f.added = append(f.added, in)
	return f.addresses, f.err
}

func (f *fakeAccount) RemoveAddress(_ context.Context, _ primitive.ObjectID, id string) ([]domain.Address, error) {
	f.removed = append(f.removed, id)
	return f.addresses, f.err
}

func (f *fakeAccount) DeliverySlots() []domain.DeliverySlot {
	return domain.DeliverySlots()
}

type cartCall struct {
	userID    primitive.ObjectID
	productID primitive.ObjectID
	quantity  float64
}

type fakeCart struct {
	view  *domain.CartView
	err   error
	calls []cartCall
}

func (f *fakeCart) GetCart(_ context.Context, userID primitive.ObjectID) (*domain.CartView, error) {
	f.calls = append(f.calls, cartCall{userID: userID})
	return f.view, f.err
}

func (f *fakeCart) AddItem(_ context.Context, userID, productID primitive.ObjectID, quantity int) (*domain.CartView, error) {
	f.calls = append(f.calls, cartCall{userID, productID, float64(quantity)})
	return f.view, f.err
}

func (f *fakeCart) UpdateQuantity(_ context.Context, userID, productID primitive.ObjectID, quantity float64) (*domain.CartView, error) {
	f.calls = append(f.calls, cartCall{userID, productID, quantity})
	return f.view, f.err
}

func (f *fakeCart) RemoveItem(_ context.Context, userID, productID primitive.ObjectID) (*domain.CartView, error) {
	f.calls = append(f.calls, cartCall{userID: userID, productID: productID})
	return f.view, f.err
}

type fakeOrders struct {
	placed   []service.PlaceOrderRequest
	orderID  primitive.ObjectID
	orders   []*domain.Order
	all      []*domain.OrderWithUser
	statuses []string
	err      error
}

func (f *fakeOrders) PlaceOrder(_ context.Context, req service.PlaceOrderRequest) (primitive.ObjectID, error) {
	f.placed = append(f.placed, req)
	return f.orderID, f.err
}

func (f *fakeOrders) History(context.Context, primitive.ObjectID) ([]*domain.Order, error) {
	return f.orders, f.err
}

func (f *fakeOrders) ListAll(context.Context) ([]*domain.OrderWithUser, error) {
	return f.all, f.err
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id primitive.ObjectID, status string) (*domain.OrderWithUser, error) {
	f.statuses = append(f.statuses, status)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.OrderWithUser{ID: id, Status: domain.OrderStatus(status)}, nil
}

type fakeReports struct {
	report *domain.SalesReport
	err    error
}

func (f *fakeReports) SalesReport(context.Context) (*domain.SalesReport, error) {
	return f.report, f.err
}

type fakeCatalog struct {
	products   []*domain.Product
	categories []*domain.Category
	inputs     []service.ProductInput
	queries    [][2]string
	err        error
}

func (f *fakeCatalog) PublicProducts(_ context.Context, search, categories string) ([]*domain.Product, error) {
	f.queries = append(f.queries, [2]string{search, categories})
	return f.products, f.err
}

func (f *fakeCatalog) PublicCategories(context.Context) ([]*domain.Category, error) {
	return f.categories, f.err
}

func (f *fakeCatalog) ListProducts(_ context.Context, search, category string) ([]*domain.Product, error) {
	f.queries = append(f.queries, [2]string{search, category})
	return f.products, f.err
}

func (f *fakeCatalog) CreateProduct(_ context.Context, in service.ProductInput) (*domain.Product, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	p := &domain.Product{ID: primitive.NewObjectID()}
	if in.Name != nil {
		p.Name = *in.Name
	}
	return p, nil
}

func (f *fakeCatalog) UpdateProduct(_ context.Context, id primitive.ObjectID, in service.ProductInput) (*domain.Product, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Product{ID: id}, nil
}

func (f *fakeCatalog) DeleteProduct(context.Context, primitive.ObjectID) error {
	return f.err
}

func (f *fakeCatalog) ListCategories(context.Context) ([]*domain.Category, error) {
	return f.categories, f.err
}

func (f *fakeCatalog) CreateCategory(_ context.Context, name, description string) (*domain.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Category{ID: primitive.NewObjectID(), Name: name, Description: description}, nil
}

func (f *fakeCatalog) UpdateCategory(_ context.Context, id primitive.ObjectID, name, description string) (*domain.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Category{ID: id, Name: name, Description: description}, nil
}

func (f *fakeCatalog) DeleteCategory(context.Context, primitive.ObjectID) error {
	return f.err
}
