package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/marketbay/marketplace-backend/apperrors"
	"github.com/marketbay/marketplace-backend/models"
)

func newCheckoutService(products *memProductRepo, carts *memCartRepo, orders *memOrderRepo, publisher OrderEventPublisher) *CheckoutService {
	logger, _ := zap.NewDevelopment()
	return NewCheckoutService(products, carts, orders, publisher, logger)
}

func TestCheckout_StockConservation(t *testing.T) {
	a := listing("Guitar", "seller-1", 100, 5)
	b := listing("Amp", "seller-1", 250, 3)
	products := newMemProductRepo(a, b)
	carts := newMemCartRepo()
	orders := newMemOrderRepo()
	_ = carts.Save(context.Background(), cartWith("buyer-1", item(a, 2), item(b, 1)))

	svc := newCheckoutService(products, carts, orders, nil)
	created, remaining, err := svc.Checkout(context.Background(), "buyer-1", nil)

	assert.NoError(t, err)
	assert.Nil(t, remaining)
	assert.Equal(t, 3, products.stock(a.ID))
	assert.Equal(t, 2, products.stock(b.ID))

	// quantity removed from stock equals quantity across order lines
	removed := map[string]int{}
	for _, order := range created {
		for _, line := range order.Products {
			removed[line.ProductID.Hex()] += line.Quantity
		}
	}
	assert.Equal(t, 2, removed[a.ID.Hex()])
	assert.Equal(t, 1, removed[b.ID.Hex()])
}

func TestCheckout_RollbackRestoresAppliedPrefix(t *testing.T) {
	a := listing("A", "seller-1", 10, 5)
	b := listing("B", "seller-2", 20, 5)
	c := listing("C", "seller-3", 30, 1) // short: cart wants 3
	products := newMemProductRepo(a, b, c)
	carts := newMemCartRepo()
	orders := newMemOrderRepo()
	cart := cartWith("buyer-1", item(a, 2), item(b, 1), item(c, 3))
	_ = carts.Save(context.Background(), cart)

	svc := newCheckoutService(products, carts, orders, nil)
	created, _, err := svc.Checkout(context.Background(), "buyer-1", nil)

	assert.Nil(t, created)
	var appErr *apperrors.Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, 400, appErr.Code)
	assert.Contains(t, appErr.Message, "C")

	// first N-1 decrements are restored
	assert.Equal(t, 5, products.stock(a.ID))
	assert.Equal(t, 5, products.stock(b.ID))
	assert.Equal(t, 1, products.stock(c.ID))

	// compensation replays in applied order
	assert.Equal(t, []stockChange{
		{productID: a.ID, quantity: 2},
		{productID: b.ID, quantity: 1},
	}, products.increments)

	// no order created, no cart item removed
	assert.Empty(t, orders.orders)
	got, err := carts.FindByUser(context.Background(), "buyer-1")
	assert.NoError(t, err)
	assert.Len(t, got.Items, 3)
}

func TestCheckout_SelfPurchaseRejectsWholeCheckout(t *testing.T) {
	theirs := listing("Theirs", "seller-1", 10, 5)
	mine := listing("Mine", "buyer-1", 10, 5)
	products := newMemProductRepo(theirs, mine)
	carts := newMemCartRepo()
	orders := newMemOrderRepo()
	_ = carts.Save(context.Background(), cartWith("buyer-1", item(theirs, 1), item(mine, 1)))

	svc := newCheckoutService(products, carts, orders, nil)
	_, _, err := svc.Checkout(context.Background(), "buyer-1", nil)

	assert.ErrorIs(t, err, apperrors.ErrSelfPurchase)
	assert.Equal(t, 5, products.stock(theirs.ID))
	assert.Equal(t, 5, products.stock(mine.ID))
	assert.Empty(t, orders.orders)
	assert.Empty(t, products.decrements)
}

func TestCheckout_PartialSelectionLeavesRest(t *testing.T) {
	a := listing("A", "seller-1", 10, 10)
	b := listing("B", "seller-1", 10, 10)
	c := listing("C", "seller-1", 10, 10)
	products := newMemProductRepo(a, b, c)
	carts := newMemCartRepo()
	orders := newMemOrderRepo()
	_ = carts.Save(context.Background(), cartWith("buyer-1", item(a, 2), item(b, 1), item(c, 3)))

	svc := newCheckoutService(products, carts, orders, nil)
	_, remaining, err := svc.Checkout(context.Background(), "buyer-1", []string{a.ID.Hex(), c.ID.Hex()})

	assert.NoError(t, err)
	assert.NotNil(t, remaining)
	assert.Len(t, remaining.Items, 1)
	assert.Equal(t, b.ID, remaining.Items[0].ProductID)
	assert.Equal(t, 1, remaining.Items[0].Quantity)
}

func TestCheckout_FullSelectionDeletesCart(t *testing.T) {
	a := listing("A", "seller-1", 10, 10)
	b := listing("B", "seller-1", 10, 10)
	products := newMemProductRepo(a, b)
	carts := newMemCartRepo()
	orders := newMemOrderRepo()
	_ = carts.Save(context.Background(), cartWith("buyer-1", item(a, 1), item(b, 1)))

	svc := newCheckoutService(products, carts, orders, nil)
	_, remaining, err := svc.Checkout(context.Background(), "buyer-1", []string{a.ID.Hex(), b.ID.Hex()})

	assert.NoError(t, err)
	assert.Nil(t, remaining)
	_, err = carts.FindByUser(context.Background(), "buyer-1")
	assert.Error(t, err)
}

func TestCheckout_GroupsOrdersBySeller(t *testing.T) {
	a := listing("A", "seller-1", 100, 10)
	b := listing("B", "seller-2", 50, 10)
	c := listing("C", "seller-1", 25, 10)
	products := newMemProductRepo(a, b, c)
	carts := newMemCartRepo()
	orders := newMemOrderRepo()
	publisher := &memPublisher{}
	_ = carts.Save(context.Background(), cartWith("buyer-1", item(a, 1), item(b, 2), item(c, 4)))

	svc := newCheckoutService(products, carts, orders, publisher)
	created, _, err := svc.Checkout(context.Background(), "buyer-1", nil)

	assert.NoError(t, err)
	assert.Len(t, created, 2)

	bySeller := map[string]models.Order{}
	for _, order := range created {
		bySeller[order.SellerID] = order
	}
	s1 := bySeller["seller-1"]
	assert.Len(t, s1.Products, 2)
	assert.Equal(t, 100.0*1+25.0*4, s1.TotalPrice)
	s2 := bySeller["seller-2"]
	assert.Len(t, s2.Products, 1)
	assert.Equal(t, 50.0*2, s2.TotalPrice)

	// totalPrice equals the sum of each order's own line subtotals
	for _, order := range created {
		var sum float64
		for _, line := range order.Products {
			sum += line.Subtotal()
		}
		assert.Equal(t, sum, order.TotalPrice)
	}

	// one event per created order
	assert.Len(t, publisher.events, 2)
}

func TestCheckout_EmptyCart(t *testing.T) {
	products := newMemProductRepo()
	carts := newMemCartRepo()
	svc := newCheckoutService(products, carts, newMemOrderRepo(), nil)

	_, _, err := svc.Checkout(context.Background(), "buyer-1", nil)
	assert.ErrorIs(t, err, apperrors.ErrEmptyCart)
}

func TestCheckout_NoMatchingItems(t *testing.T) {
	a := listing("A", "seller-1", 10, 10)
	products := newMemProductRepo(a)
	carts := newMemCartRepo()
	_ = carts.Save(context.Background(), cartWith("buyer-1", item(a, 1)))

	svc := newCheckoutService(products, carts, newMemOrderRepo(), nil)
	_, _, err := svc.Checkout(context.Background(), "buyer-1", []string{"ffffffffffffffffffffffff"})
	assert.ErrorIs(t, err, apperrors.ErrNoMatchingItems)
}

func TestCheckout_OrderPersistFailureUndoesEverything(t *testing.T) {
	a := listing("A", "seller-1", 10, 5)
	b := listing("B", "seller-2", 10, 5)
	products := newMemProductRepo(a, b)
	carts := newMemCartRepo()
	orders := newMemOrderRepo()
	orders.failOn = 2 // second seller order fails
	_ = carts.Save(context.Background(), cartWith("buyer-1", item(a, 2), item(b, 3)))

	svc := newCheckoutService(products, carts, orders, nil)
	created, _, err := svc.Checkout(context.Background(), "buyer-1", nil)

	assert.Nil(t, created)
	var appErr *apperrors.Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, 500, appErr.Code)

	// the first seller's persisted order was undone and stock restored
	assert.Empty(t, orders.orders)
	assert.Equal(t, 5, products.stock(a.ID))
	assert.Equal(t, 5, products.stock(b.ID))

	// cart untouched
	got, findErr := carts.FindByUser(context.Background(), "buyer-1")
	assert.NoError(t, findErr)
	assert.Len(t, got.Items, 2)
}

func TestCheckout_BoundaryExactStock(t *testing.T) {
	a := listing("A", "seller-1", 10, 3)
	products := newMemProductRepo(a)
	carts := newMemCartRepo()
	_ = carts.Save(context.Background(), cartWith("buyer-1", item(a, 3)))

	svc := newCheckoutService(products, carts, newMemOrderRepo(), nil)
	created, _, err := svc.Checkout(context.Background(), "buyer-1", nil)

	assert.NoError(t, err)
	assert.Len(t, created, 1)
	assert.Equal(t, 0, products.stock(a.ID))
}

func TestCheckout_BoundaryStockPlusOneFailsCleanly(t *testing.T) {
	a := listing("A", "seller-1", 10, 3)
	products := newMemProductRepo(a)
	carts := newMemCartRepo()
	_ = carts.Save(context.Background(), cartWith("buyer-1", item(a, 4)))

	svc := newCheckoutService(products, carts, newMemOrderRepo(), nil)
	_, _, err := svc.Checkout(context.Background(), "buyer-1", nil)

	var appErr *apperrors.Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, 400, appErr.Code)
	assert.Equal(t, 3, products.stock(a.ID))
}

func TestStockReservation_CompensateReplaysInOrder(t *testing.T) {
	a := listing("A", "seller-1", 10, 0)
	b := listing("B", "seller-1", 10, 0)
	products := newMemProductRepo(a, b)

	reserved := stockReservation{
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 5},
	}
	reserved.compensate(context.Background(), products, zap.NewNop())

	assert.Equal(t, 2, products.stock(a.ID))
	assert.Equal(t, 5, products.stock(b.ID))
	assert.Equal(t, []stockChange{
		{productID: a.ID, quantity: 2},
		{productID: b.ID, quantity: 5},
	}, products.increments)
}

func TestCreateOrder_ReservesStockAndSnapshots(t *testing.T) {
	a := listing("Lamp", "seller-1", 40, 5)
	a.Currency = "" // falls back to default
	products := newMemProductRepo(a)
	orders := newMemOrderRepo()

	svc := newCheckoutService(products, newMemCartRepo(), orders, nil)
	order, err := svc.CreateOrder(context.Background(), "buyer-1", a.ID.Hex(), 2)

	assert.NoError(t, err)
	assert.Equal(t, 3, products.stock(a.ID))
	assert.Equal(t, "seller-1", order.SellerID)
	assert.Len(t, order.Products, 1)
	assert.Equal(t, "Lamp", order.Products[0].Title)
	assert.Equal(t, models.DefaultCurrency, order.Products[0].Currency)
	assert.Equal(t, 80.0, order.TotalPrice)
	assert.NotEmpty(t, order.OrderNumber)
}

func TestCreateOrder_SelfPurchase(t *testing.T) {
	mine := listing("Mine", "buyer-1", 10, 5)
	products := newMemProductRepo(mine)

	svc := newCheckoutService(products, newMemCartRepo(), newMemOrderRepo(), nil)
	_, err := svc.CreateOrder(context.Background(), "buyer-1", mine.ID.Hex(), 1)

	assert.ErrorIs(t, err, apperrors.ErrSelfPurchase)
	assert.Equal(t, 5, products.stock(mine.ID))
}

func TestCreateOrder_ProductNotFound(t *testing.T) {
	svc := newCheckoutService(newMemProductRepo(), newMemCartRepo(), newMemOrderRepo(), nil)
	_, err := svc.CreateOrder(context.Background(), "buyer-1", "ffffffffffffffffffffffff", 1)
	assert.ErrorIs(t, err, apperrors.ErrProductNotFound)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	a := listing("A", "seller-1", 10, 1)
	products := newMemProductRepo(a)

	svc := newCheckoutService(products, newMemCartRepo(), newMemOrderRepo(), nil)
	_, err := svc.CreateOrder(context.Background(), "buyer-1", a.ID.Hex(), 2)

	var appErr *apperrors.Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, 400, appErr.Code)
	assert.Equal(t, 1, products.stock(a.ID))
}

func TestCreateOrder_PersistFailureReleasesStock(t *testing.T) {
	a := listing("A", "seller-1", 10, 5)
	products := newMemProductRepo(a)
	orders := newMemOrderRepo()
	orders.failOn = 1

	svc := newCheckoutService(products, newMemCartRepo(), orders, nil)
	_, err := svc.CreateOrder(context.Background(), "buyer-1", a.ID.Hex(), 2)

	assert.Error(t, err)
	assert.Equal(t, 5, products.stock(a.ID))
}
