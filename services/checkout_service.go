package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/marketbay/marketplace-backend/apperrors"
	"github.com/marketbay/marketplace-backend/models"
	"github.com/marketbay/marketplace-backend/repository"
)

// OrderEventPublisher publishes order lifecycle events. Publishing is
// best-effort; a failed publish never fails the checkout.
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, event models.OrderEvent) error
}

// CheckoutService converts a cart (or a selected subset of it) into one
// order per seller, reserving stock through the catalog's conditional
// decrement and compensating on failure. The stores have no multi-document
// transaction; correctness rests on the compensation list.
type CheckoutService struct {
	products  repository.ProductRepository
	carts     repository.CartRepository
	orders    repository.OrderRepository
	publisher OrderEventPublisher
	logger    *zap.Logger
}

func NewCheckoutService(
	products repository.ProductRepository,
	carts repository.CartRepository,
	orders repository.OrderRepository,
	publisher OrderEventPublisher,
	logger *zap.Logger,
) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		products:  products,
		carts:     carts,
		orders:    orders,
		publisher: publisher,
		logger:    logger,
	}
}

// appliedDecrement records one successful stock decrement so it can be
// undone if a later step fails.
type appliedDecrement struct {
	ProductID primitive.ObjectID
	Quantity  int
}

// stockReservation is the ordered list of decrements applied so far in one
// checkout attempt.
type stockReservation []appliedDecrement

// compensate re-increments every applied decrement, in the order applied.
// A failed increment leaves stock under-counted with no further recovery
// path, so it is logged at error level and compensation continues.
func (r stockReservation) compensate(ctx context.Context, products repository.ProductRepository, log *zap.Logger) {
	for _, applied := range r {
		if err := products.IncrementStock(ctx, applied.ProductID, applied.Quantity); err != nil {
			log.Error("stock compensation failed, stock is under-counted",
				zap.String("product_id", applied.ProductID.Hex()),
				zap.Int("quantity", applied.Quantity),
				zap.Error(err),
			)
		}
	}
}

// Checkout runs the cart-to-order transaction for buyerID. When
// selectedProductIDs is non-empty it restricts checkout to that subset of
// the cart; otherwise the whole cart is checked out. It returns the created
// orders and the remaining cart (nil when the cart was emptied and deleted).
func (s *CheckoutService) Checkout(ctx context.Context, buyerID string, selectedProductIDs []string) ([]models.Order, *models.Cart, error) {
	cart, err := s.carts.FindByUser(ctx, buyerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperrors.ErrEmptyCart
	}
	if err != nil {
		return nil, nil, apperrors.Internal(err)
	}
	if cart.IsEmpty() {
		return nil, nil, apperrors.ErrEmptyCart
	}

	selected := selectItems(cart.Items, selectedProductIDs)
	if len(selected) == 0 {
		return nil, nil, apperrors.ErrNoMatchingItems
	}

	// Resolve every selected product up front. Price, owner and title are
	// read here; only quantity is touched afterwards.
	productsByID := make(map[primitive.ObjectID]*models.Product, len(selected))
	for _, item := range selected {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.ErrProductNotFound
		}
		if err != nil {
			return nil, nil, apperrors.Internal(err)
		}
		productsByID[item.ProductID] = product
	}

	// All-or-nothing: one own listing rejects the whole checkout.
	for _, item := range selected {
		if productsByID[item.ProductID].OwnedBy(buyerID) {
			return nil, nil, apperrors.ErrSelfPurchase
		}
	}

	// Reserve stock sequentially in selection order. The conditional
	// decrement is the concurrency-safety boundary; on the first failure
	// the applied prefix is compensated and the call fails with no order
	// created and no cart item removed.
	reserved := make(stockReservation, 0, len(selected))
	for _, item := range selected {
		err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			reserved.compensate(ctx, s.products, s.logger)
			if errors.Is(err, repository.ErrInsufficientStock) {
				title := productsByID[item.ProductID].Title
				return nil, nil, apperrors.InsufficientStock(fmt.Sprintf("Not enough stock for %s", title))
			}
			return nil, nil, apperrors.Internal(err)
		}
		reserved = append(reserved, appliedDecrement{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	orders, err := s.createSellerOrders(ctx, buyerID, selected, productsByID)
	if err != nil {
		// Extended compensation window: undo orders already persisted in
		// this attempt, then release every reserved decrement.
		for i := range orders {
			if delErr := s.orders.Delete(ctx, orders[i].ID); delErr != nil {
				s.logger.Error("failed to undo order after checkout failure",
					zap.String("order_id", orders[i].ID.Hex()),
					zap.Error(delErr),
				)
			}
		}
		reserved.compensate(ctx, s.products, s.logger)
		return nil, nil, apperrors.Internal(err)
	}

	s.publishOrderEvents(ctx, orders)

	remaining, err := s.pruneCart(ctx, cart, selected)
	if err != nil {
		// Orders and stock are consistent with the purchase at this point;
		// only the cart is stale. Surface the store error without undoing.
		return nil, nil, apperrors.Internal(err)
	}

	return orders, remaining, nil
}

// CreateOrder is the non-cart path: one product, one line, one order. Stock
// is reserved through the same conditional decrement as checkout.
func (s *CheckoutService) CreateOrder(ctx context.Context, buyerID string, productID string, quantity int) (*models.Order, error) {
	if quantity < 1 {
		return nil, apperrors.ErrInvalidInput
	}
	id, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, apperrors.ErrProductNotFound
	}

	product, err := s.products.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrProductNotFound
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if product.OwnedBy(buyerID) {
		return nil, apperrors.ErrSelfPurchase
	}

	if err := s.products.DecrementStock(ctx, id, quantity); err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, apperrors.InsufficientStock(fmt.Sprintf("Not enough stock for %s", product.Title))
		}
		return nil, apperrors.Internal(err)
	}

	line := snapshotLine(product, quantity)
	order := &models.Order{
		OrderNumber: newOrderNumber(),
		BuyerID:     buyerID,
		SellerID:    product.UserID,
		Products:    []models.OrderLine{line},
		TotalPrice:  line.Subtotal(),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.orders.Create(ctx, order); err != nil {
		if incErr := s.products.IncrementStock(ctx, id, quantity); incErr != nil {
			s.logger.Error("stock compensation failed, stock is under-counted",
				zap.String("product_id", id.Hex()),
				zap.Int("quantity", quantity),
				zap.Error(incErr),
			)
		}
		return nil, apperrors.Internal(err)
	}

	s.publishOrderEvents(ctx, []models.Order{*order})
	return order, nil
}

// ItemsBought lists the buyer's orders, newest first.
func (s *CheckoutService) ItemsBought(ctx context.Context, buyerID string) ([]models.Order, error) {
	orders, err := s.orders.FindByBuyer(ctx, buyerID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return orders, nil
}

// ItemsSold lists orders placed against the seller's listings.
func (s *CheckoutService) ItemsSold(ctx context.Context, sellerID string) ([]models.Order, error) {
	orders, err := s.orders.FindBySeller(ctx, sellerID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return orders, nil
}

// selectItems filters cart items down to the requested product ids,
// preserving cart order. An empty selection means the whole cart.
func selectItems(items []models.CartItem, selectedProductIDs []string) []models.CartItem {
	if len(selectedProductIDs) == 0 {
		return items
	}
	wanted := make(map[string]struct{}, len(selectedProductIDs))
	for _, id := range selectedProductIDs {
		wanted[id] = struct{}{}
	}
	var selected []models.CartItem
	for _, item := range items {
		if _, ok := wanted[item.ProductID.Hex()]; ok {
			selected = append(selected, item)
		}
	}
	return selected
}

// createSellerOrders groups the reserved items by listing owner and persists
// one order per seller, in first-seen seller order. On error it returns the
// orders persisted so far so the caller can undo them.
func (s *CheckoutService) createSellerOrders(
	ctx context.Context,
	buyerID string,
	selected []models.CartItem,
	productsByID map[primitive.ObjectID]*models.Product,
) ([]models.Order, error) {
	linesBySeller := make(map[string][]models.OrderLine)
	var sellerOrder []string
	for _, item := range selected {
		product := productsByID[item.ProductID]
		if _, seen := linesBySeller[product.UserID]; !seen {
			sellerOrder = append(sellerOrder, product.UserID)
		}
		linesBySeller[product.UserID] = append(linesBySeller[product.UserID], snapshotLine(product, item.Quantity))
	}

	created := make([]models.Order, 0, len(sellerOrder))
	for _, sellerID := range sellerOrder {
		lines := linesBySeller[sellerID]
		var total float64
		for _, line := range lines {
			total += line.Subtotal()
		}

		order := &models.Order{
			OrderNumber: newOrderNumber(),
			BuyerID:     buyerID,
			SellerID:    sellerID,
			Products:    lines,
			TotalPrice:  total,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return created, err
		}
		created = append(created, *order)
	}
	return created, nil
}

// pruneCart removes the checked-out items. The cart document is deleted when
// it becomes empty; callers get nil back in that case.
func (s *CheckoutService) pruneCart(ctx context.Context, cart *models.Cart, checkedOut []models.CartItem) (*models.Cart, error) {
	consumed := make(map[primitive.ObjectID]struct{}, len(checkedOut))
	for _, item := range checkedOut {
		consumed[item.ProductID] = struct{}{}
	}

	remaining := cart.Items[:0:0]
	for _, item := range cart.Items {
		if _, ok := consumed[item.ProductID]; !ok {
			remaining = append(remaining, item)
		}
	}
	cart.Items = remaining

	if len(cart.Items) == 0 {
		if err := s.carts.DeleteByUser(ctx, cart.UserID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, nil
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CheckoutService) publishOrderEvents(ctx context.Context, orders []models.Order) {
	if s.publisher == nil {
		return
	}
	for _, order := range orders {
		event := models.OrderEvent{
			Event:       "order.created",
			OrderID:     order.ID.Hex(),
			OrderNumber: order.OrderNumber,
			BuyerID:     order.BuyerID,
			SellerID:    order.SellerID,
			TotalPrice:  order.TotalPrice,
			Timestamp:   time.Now().UTC(),
		}
		if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
			s.logger.Warn("failed to publish order event",
				zap.String("order_id", event.OrderID),
				zap.Error(err),
			)
		}
	}
}

func snapshotLine(product *models.Product, quantity int) models.OrderLine {
	return models.OrderLine{
		ProductID: product.ID,
		Title:     product.Title,
		Image:     product.Image,
		Quantity:  quantity,
		Price:     product.Price,
		Currency:  product.PriceCurrency(),
	}
}

func newOrderNumber() string {
	return "ORD-" + uuid.NewString()
}
