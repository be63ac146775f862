package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/marketbay/marketplace-backend/models"
	"github.com/marketbay/marketplace-backend/repository"
)

// --- Mock product repository ---

type stockChange struct {
	productID primitive.ObjectID
	quantity  int
}

type memProductRepo struct {
	products   map[primitive.ObjectID]*models.Product
	decrements []stockChange
	increments []stockChange
}

func newMemProductRepo(products ...*models.Product) *memProductRepo {
	repo := &memProductRepo{products: make(map[primitive.ObjectID]*models.Product)}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (m *memProductRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memProductRepo) FindAll(_ context.Context) ([]models.Product, error) {
	var out []models.Product
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memProductRepo) Create(_ context.Context, product *models.Product) error {
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m *memProductRepo) Update(_ context.Context, id primitive.ObjectID, updates bson.M) error {
	p, ok := m.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	if title, ok := updates["title"].(string); ok {
		p.Title = title
	}
	if qty, ok := updates["quantity"].(int); ok {
		p.Quantity = qty
	}
	return nil
}

func (m *memProductRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memProductRepo) DecrementStock(_ context.Context, id primitive.ObjectID, quantity int) error {
	p, ok := m.products[id]
	if !ok || p.Quantity < quantity {
		return repository.ErrInsufficientStock
	}
	p.Quantity -= quantity
	m.decrements = append(m.decrements, stockChange{productID: id, quantity: quantity})
	return nil
}

func (m *memProductRepo) IncrementStock(_ context.Context, id primitive.ObjectID, quantity int) error {
	p, ok := m.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Quantity += quantity
	m.increments = append(m.increments, stockChange{productID: id, quantity: quantity})
	return nil
}

func (m *memProductRepo) stock(id primitive.ObjectID) int {
	return m.products[id].Quantity
}

// --- Mock cart repository ---

type memCartRepo struct {
	carts map[string]*models.Cart
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: make(map[string]*models.Cart)}
}

func (m *memCartRepo) FindByUser(_ context.Context, userID string) (*models.Cart, error) {
	cart, ok := m.carts[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *cart
	copied.Items = append([]models.CartItem(nil), cart.Items...)
	return &copied, nil
}

func (m *memCartRepo) Save(_ context.Context, cart *models.Cart) error {
	copied := *cart
	copied.Items = append([]models.CartItem(nil), cart.Items...)
	copied.UpdatedAt = time.Now()
	m.carts[cart.UserID] = &copied
	return nil
}

func (m *memCartRepo) DeleteByUser(_ context.Context, userID string) error {
	if _, ok := m.carts[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(m.carts, userID)
	return nil
}

// --- Mock order repository ---

type memOrderRepo struct {
	orders  []*models.Order
	failOn  int // 1-based create index that fails; 0 means never
	creates int
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{}
}

func (m *memOrderRepo) Create(_ context.Context, order *models.Order) error {
	m.creates++
	if m.failOn > 0 && m.creates == m.failOn {
		return errMockStore
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	copied := *order
	copied.Products = append([]models.OrderLine(nil), order.Products...)
	m.orders = append(m.orders, &copied)
	return nil
}

func (m *memOrderRepo) FindByBuyer(_ context.Context, buyerID string) ([]models.Order, error) {
	var out []models.Order
	for _, o := range m.orders {
		if o.BuyerID == buyerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrderRepo) FindBySeller(_ context.Context, sellerID string) ([]models.Order, error) {
	var out []models.Order
	for _, o := range m.orders {
		if o.SellerID == sellerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrderRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	for i, o := range m.orders {
		if o.ID == id {
			m.orders = append(m.orders[:i], m.orders[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type mockStoreError struct{}

func (mockStoreError) Error() string { return "store unavailable" }

var errMockStore = mockStoreError{}

// --- Mock event publisher ---

type memPublisher struct {
	events []models.OrderEvent
}

func (m *memPublisher) PublishOrderCreated(_ context.Context, event models.OrderEvent) error {
	m.events = append(m.events, event)
	return nil
}

// --- Helpers ---

func listing(title, ownerID string, price float64, quantity int) *models.Product {
	return &models.Product{
		ID:       primitive.NewObjectID(),
		Title:    title,
		Price:    price,
		Currency: "MMK",
		Quantity: quantity,
		UserID:   ownerID,
	}
}

func cartWith(userID string, items ...models.CartItem) *models.Cart {
	return &models.Cart{
		ID:     primitive.NewObjectID(),
		UserID: userID,
		Items:  items,
	}
}

func item(p *models.Product, quantity int) models.CartItem {
	return models.CartItem{ProductID: p.ID, Quantity: quantity}
}
