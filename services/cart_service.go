package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/marketbay/marketplace-backend/apperrors"
	"github.com/marketbay/marketplace-backend/models"
	"github.com/marketbay/marketplace-backend/repository"
)

// CartService mutates the per-user cart. Its stock checks are advisory only
// (fail fast for obviously overcommitted carts); the authoritative check is
// checkout's conditional decrement.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	logger   *zap.Logger
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, logger *zap.Logger) *CartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{carts: carts, products: products, logger: logger}
}

// GetCart returns the user's cart, or an empty unsaved cart when none exists.
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.FindByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return cart, nil
}

// AddItem adds quantity of a product to the cart, creating the cart lazily.
// Adding the same product twice is additive.
func (s *CartService) AddItem(ctx context.Context, userID string, productID string, quantity int) (*models.Cart, error) {
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

	cart, err := s.carts.FindByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		cart = &models.Cart{UserID: userID}
	} else if err != nil {
		return nil, apperrors.Internal(err)
	}

	existing := 0
	if idx := cart.ItemIndex(id); idx >= 0 {
		existing = cart.Items[idx].Quantity
	}
	if existing+quantity > product.Quantity {
		return nil, apperrors.InsufficientStock(
			fmt.Sprintf("Insufficient stock. Only %d more available.", product.Quantity-existing))
	}

	if idx := cart.ItemIndex(id); idx >= 0 {
		cart.Items[idx].Quantity += quantity
	} else {
		cart.Items = append(cart.Items, models.CartItem{ProductID: id, Quantity: quantity})
	}

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, apperrors.Internal(err)
	}
	return cart, nil
}

// UpdateItem sets the quantity of a cart item. Zero removes the item, and
// removing the last item deletes the cart; nil is returned in that case.
func (s *CartService) UpdateItem(ctx context.Context, userID string, productID string, quantity int) (*models.Cart, error) {
	if quantity < 0 {
		return nil, apperrors.ErrInvalidInput
	}
	id, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, apperrors.ErrProductNotFound
	}

	cart, err := s.carts.FindByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrCartNotFound
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	idx := cart.ItemIndex(id)
	if idx < 0 {
		return nil, apperrors.ErrItemNotInCart
	}

	if quantity == 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		return s.saveOrDelete(ctx, cart)
	}

	product, err := s.products.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrProductNotFound
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if quantity > product.Quantity {
		return nil, apperrors.InsufficientStock(
			fmt.Sprintf("Insufficient stock. Only %d available.", product.Quantity))
	}

	cart.Items[idx].Quantity = quantity
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, apperrors.Internal(err)
	}
	return cart, nil
}

// RemoveItem drops a product from the cart unconditionally.
func (s *CartService) RemoveItem(ctx context.Context, userID string, productID string) (*models.Cart, error) {
	id, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, apperrors.ErrProductNotFound
	}

	cart, err := s.carts.FindByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrCartNotFound
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	idx := cart.ItemIndex(id)
	if idx < 0 {
		return nil, apperrors.ErrItemNotInCart
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	return s.saveOrDelete(ctx, cart)
}

// Clear deletes the cart document. A second call reports CartNotFound.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	err := s.carts.DeleteByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.ErrCartNotFound
	}
	if err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *CartService) saveOrDelete(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if len(cart.Items) == 0 {
		if err := s.carts.DeleteByUser(ctx, cart.UserID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Internal(err)
		}
		return nil, nil
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, apperrors.Internal(err)
	}
	return cart, nil
}
