package service

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fjod/farmfresh/internal/cache"
	"github.com/fjod/farmfresh/internal/domain"
	"github.com/fjod/farmfresh/internal/repository"
	"github.com/fjod/farmfresh/internal/session"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockUserRepository struct {
	m     sync.Mutex
	users map[primitive.ObjectID]*domain.User
	err   error
	// conflicts makes the next N SetCartQuantity calls fail with ErrCartConflict
	conflicts int
	setCalls  int
}

func newMockUserRepository(users ...*domain.User) *mockUserRepository {
	repo := &mockUserRepository{users: make(map[primitive.ObjectID]*domain.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockUserRepository) CreateUser(_ context.Context, user *domain.User) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.users[user.ID] = cloneUser(user)
	return nil
}

func (m *mockUserRepository) GetUser(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (m *mockUserRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) SetRole(_ context.Context, id primitive.ObjectID, role domain.Role) error {
	m.m.Lock()
	defer m.m.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (m *mockUserRepository) SetCartQuantity(_ context.Context, userID, productID primitive.ObjectID, expected, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.setCalls++
	if m.err != nil {
		return m.err
	}
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if m.conflicts > 0 {
		m.conflicts--
		return repository.ErrCartConflict
	}

	for i := range u.Cart {
		if u.Cart[i].ProductID == productID {
			if u.Cart[i].Quantity != expected {
				return repository.ErrCartConflict
			}
			u.Cart[i].Quantity = quantity
			return nil
		}
	}
	if expected != 0 {
		return repository.ErrCartConflict
	}
	u.Cart = append(u.Cart, domain.CartEntry{ProductID: productID, Quantity: quantity})
	return nil
}

func (m *mockUserRepository) RemoveCartEntry(_ context.Context, userID, productID primitive.ObjectID) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Cart = slices.DeleteFunc(u.Cart, func(e domain.CartEntry) bool { return e.ProductID == productID })
	return nil
}

func (m *mockUserRepository) ClearCart(_ context.Context, userID primitive.ObjectID) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Cart = []domain.CartEntry{}
	return nil
}

func (m *mockUserRepository) AddAddress(_ context.Context, userID primitive.ObjectID, address domain.Address) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if address.ID.IsZero() {
		address.ID = primitive.NewObjectID()
	}
	u.Addresses = append(u.Addresses, address)
	return nil
}

func (m *mockUserRepository) RemoveAddress(_ context.Context, userID, addressID primitive.ObjectID) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	before := len(u.Addresses)
	u.Addresses = slices.DeleteFunc(u.Addresses, func(a domain.Address) bool { return a.ID == addressID })
	if len(u.Addresses) == before {
		return repository.ErrAddressNotFound
	}
	return nil
}

func (m *mockUserRepository) cart(userID primitive.ObjectID) []domain.CartEntry {
	m.m.Lock()
	defer m.m.Unlock()
	return slices.Clone(m.users[userID].Cart)
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.Cart = slices.Clone(u.Cart)
	c.Addresses = slices.Clone(u.Addresses)
	return &c
}

type mockProductRepository struct {
	m        sync.Mutex
	products map[primitive.ObjectID]*domain.Product
	order    []primitive.ObjectID
	err      error
	lists    int
	filters  []domain.ProductFilter
	// afterList runs once a listing has been read, before it is returned
	afterList func()
}

func newMockProductRepository(products ...*domain.Product) *mockProductRepository {
	repo := &mockProductRepository{products: make(map[primitive.ObjectID]*domain.Product)}
	for _, p := range products {
		repo.put(p)
	}
	return repo
}

func (m *mockProductRepository) put(p *domain.Product) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, ok := m.products[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	c := *p
	m.products[p.ID] = &c
}

func (m *mockProductRepository) ListProducts(_ context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	out, hook, err := m.list(filter)
	if hook != nil {
		hook()
	}
	return out, err
}

func (m *mockProductRepository) list(filter domain.ProductFilter) ([]*domain.Product, func(), error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.lists++
	m.filters = append(m.filters, filter)
	if m.err != nil {
		return nil, nil, m.err
	}
	out := make([]*domain.Product, 0, len(m.order))
	for _, id := range m.order {
		if p, ok := m.products[id]; ok {
			c := *p
			out = append(out, &c)
		}
	}
	hook := m.afterList
	m.afterList = nil
	return out, hook, nil
}

func (m *mockProductRepository) GetProduct(_ context.Context, id primitive.ObjectID) (*domain.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	c := *p
	return &c, nil
}

func (m *mockProductRepository) GetProducts(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*domain.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[primitive.ObjectID]*domain.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			c := *p
			out[id] = &c
		}
	}
	return out, nil
}

func (m *mockProductRepository) CreateProduct(_ context.Context, p *domain.Product) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.put(p)
	return nil
}

func (m *mockProductRepository) UpdateProduct(_ context.Context, id primitive.ObjectID, u domain.ProductUpdate) (*domain.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Image != nil {
		p.Image = *u.Image
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	c := *p
	return &c, nil
}

func (m *mockProductRepository) DeleteProduct(_ context.Context, id primitive.ObjectID) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) setPrice(id primitive.ObjectID, price float64, name string) {
	m.m.Lock()
	defer m.m.Unlock()
	m.products[id].Price = price
	m.products[id].Name = name
}

type mockCategoryRepository struct {
	m          sync.Mutex
	categories []*domain.Category
	err        error
}

func (m *mockCategoryRepository) ListCategories(context.Context) ([]*domain.Category, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return slices.Clone(m.categories), nil
}

func (m *mockCategoryRepository) CreateCategory(_ context.Context, c *domain.Category) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.categories {
		if existing.Name == c.Name {
			return repository.ErrDuplicateCategory
		}
	}
	c.ID = primitive.NewObjectID()
	m.categories = append(m.categories, c)
	return nil
}

func (m *mockCategoryRepository) UpdateCategory(_ context.Context, id primitive.ObjectID, name, description string) (*domain.Category, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var target *domain.Category
	for _, c := range m.categories {
		if c.ID == id {
			target = c
		} else if c.Name == name {
			return nil, repository.ErrDuplicateCategory
		}
	}
	if target == nil {
		return nil, repository.ErrCategoryNotFound
	}
	target.Name, target.Description = name, description
	return target, nil
}

func (m *mockCategoryRepository) DeleteCategory(_ context.Context, id primitive.ObjectID) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	before := len(m.categories)
	m.categories = slices.DeleteFunc(m.categories, func(c *domain.Category) bool { return c.ID == id })
	if len(m.categories) == before {
		return repository.ErrCategoryNotFound
	}
	return nil
}

type mockOrderRepository struct {
	m         sync.Mutex
	orders    []*domain.Order
	records   []domain.SalesRecord
	err       error
	createErr error
	// afterGet runs once after GetOrder has read an order
	afterGet func()
}

func (m *mockOrderRepository) CreateOrder(_ context.Context, o *domain.Order) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.orders {
		if o.IdempotencyKey != "" && existing.UserID == o.UserID && existing.IdempotencyKey == o.IdempotencyKey {
			return repository.ErrDuplicateOrder
		}
	}
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	c := *o
	m.orders = append(m.orders, &c)
	return nil
}

func (m *mockOrderRepository) GetOrder(_ context.Context, id primitive.ObjectID) (*domain.Order, error) {
	order, hook, err := m.getOrder(id)
	if hook != nil {
		hook()
	}
	return order, err
}

func (m *mockOrderRepository) getOrder(id primitive.ObjectID) (*domain.Order, func(), error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, nil, m.err
	}
	for _, o := range m.orders {
		if o.ID == id {
			c := *o
			hook := m.afterGet
			m.afterGet = nil
			return &c, hook, nil
		}
	}
	return nil, nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepository) GetOrderByIdempotencyKey(_ context.Context, userID primitive.ObjectID, key string) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, o := range m.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			c := *o
			return &c, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepository) ListOrdersByUser(_ context.Context, userID primitive.ObjectID) ([]*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*domain.Order, 0)
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].UserID == userID {
			out = append(out, m.orders[i])
		}
	}
	return out, nil
}

func (m *mockOrderRepository) ListOrdersWithUsers(context.Context) ([]*domain.OrderWithUser, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*domain.OrderWithUser, 0, len(m.orders))
	for i := len(m.orders) - 1; i >= 0; i-- {
		out = append(out, domain.NewOrderWithUser(m.orders[i], nil))
	}
	return out, nil
}

func (m *mockOrderRepository) UpdateOrderStatus(
	_ context.Context,
	id primitive.ObjectID,
	status domain.OrderStatus,
	notFrom ...domain.OrderStatus) (*domain.Order, error) {

	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, o := range m.orders {
		if o.ID == id {
			if slices.Contains(notFrom, o.Status) {
				return nil, repository.ErrOrderStatusMoved
			}
			o.Status = status
			o.UpdatedAt = time.Now()
			c := *o
			return &c, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepository) ScanSalesRecords(_ context.Context, fn func(domain.SalesRecord) error) error {
	m.m.Lock()
	records := slices.Clone(m.records)
	err := m.err
	m.m.Unlock()
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

type mockOutboxRepository struct {
	m      sync.Mutex
	events []*domain.OutboxEvent
	err    error
}

func (m *mockOutboxRepository) InsertEvent(_ context.Context, e *domain.OutboxEvent) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	e.ID = uuid.NewString()
	m.events = append(m.events, e)
	return nil
}

func (m *mockOutboxRepository) GetUnprocessedEvents(context.Context, int) ([]*domain.OutboxEvent, error) {
	m.m.Lock()
	defer m.m.Unlock()
	return slices.Clone(m.events), m.err
}

func (m *mockOutboxRepository) MarkEventAsProcessed(context.Context, string) error {
	return nil
}

// mockTransactor runs fn directly. Tests that need rollback check the writes
// fn attempted, since the mocks have no undo.
type mockTransactor struct {
	calls int
}

func (m *mockTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

// mockCatalogCache keeps one generation of entries. Sets carrying an older
// generation are dropped, as they are in Redis where nobody reads those keys.
type mockCatalogCache struct {
	m           sync.Mutex
	gen         int64
	products    map[string][]*domain.Product
	categories  []*domain.Category
	getErr      error
	invalidated int
	staleSets   int
}

func newMockCatalogCache() *mockCatalogCache {
	return &mockCatalogCache{products: make(map[string][]*domain.Product)}
}

func filterKey(f domain.ProductFilter) string {
	return f.Search + "|" + strings.Join(f.Categories, ",")
}

func (m *mockCatalogCache) GetProducts(_ context.Context, f domain.ProductFilter) ([]*domain.Product, int64, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.getErr != nil {
		return nil, 0, m.getErr
	}
	p, ok := m.products[filterKey(f)]
	if !ok {
		return nil, m.gen, cache.ErrCacheMiss
	}
	return p, m.gen, nil
}

func (m *mockCatalogCache) SetProducts(
	_ context.Context,
	gen int64,
	f domain.ProductFilter,
	products []*domain.Product) error {

	m.m.Lock()
	defer m.m.Unlock()
	if gen != m.gen {
		m.staleSets++
		return nil
	}
	m.products[filterKey(f)] = products
	return nil
}

func (m *mockCatalogCache) GetCategories(context.Context) ([]*domain.Category, int64, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.getErr != nil {
		return nil, 0, m.getErr
	}
	if m.categories == nil {
		return nil, m.gen, cache.ErrCacheMiss
	}
	return m.categories, m.gen, nil
}

func (m *mockCatalogCache) SetCategories(_ context.Context, gen int64, categories []*domain.Category) error {
	m.m.Lock()
	defer m.m.Unlock()
	if gen != m.gen {
		m.staleSets++
		return nil
	}
	m.categories = categories
	return nil
}

func (m *mockCatalogCache) Invalidate(context.Context) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.invalidated++
	m.gen++
	m.products = make(map[string][]*domain.Product)
	m.categories = nil
	return nil
}

type mockImageStore struct {
	url   string
	err   error
	saved [][]byte
}

func (m *mockImageStore) Save(_ context.Context, data []byte) (string, error) {
	m.saved = append(m.saved, data)
	return m.url, m.err
}

type mockSessionStore struct {
	m        sync.Mutex
	sessions map[string]*session.Session
	ttl      time.Duration
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]*session.Session), ttl: time.Hour}
}

func (m *mockSessionStore) Create(_ context.Context, user *domain.User) (*session.Session, error) {
	m.m.Lock()
	defer m.m.Unlock()
	now := time.Now()
	s := &session.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Role:      user.Role,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *mockSessionStore) Get(_ context.Context, id string) (*session.Session, error) {
	m.m.Lock()
	defer m.m.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return s, nil
}

func (m *mockSessionStore) Delete(_ context.Context, id string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.sessions, id)
	return nil
}
