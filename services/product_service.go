package services

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/marketbay/marketplace-backend/apperrors"
	"github.com/marketbay/marketplace-backend/models"
	"github.com/marketbay/marketplace-backend/repository"
)

// ProductService handles listing CRUD. Mutation is restricted to the
// listing owner; the check is re-run on every mutating call.
type ProductService struct {
	products repository.ProductRepository
	logger   *zap.Logger
}

func NewProductService(products repository.ProductRepository, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{products: products, logger: logger}
}

func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	products, err := s.products.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, productID string) (*models.Product, error) {
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
	return product, nil
}

func (s *ProductService) Create(ctx context.Context, ownerID string, product *models.Product) (*models.Product, error) {
	if product.Title == "" || product.Price < 0 || product.Quantity < 0 {
		return nil, apperrors.ErrInvalidInput
	}
	product.UserID = ownerID
	if product.Quantity == 0 {
		product.Quantity = 1
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, apperrors.Internal(err)
	}
	return product, nil
}

func (s *ProductService) Update(ctx context.Context, actorID string, productID string, updates bson.M) (*models.Product, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(product, actorID); err != nil {
		return nil, err
	}

	delete(updates, "user") // ownership is not transferable through update
	if err := s.products.Update(ctx, product.ID, updates); err != nil {
		return nil, apperrors.Internal(err)
	}
	return s.Get(ctx, productID)
}

func (s *ProductService) Delete(ctx context.Context, actorID string, productID string) error {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return err
	}
	if err := s.authorize(product, actorID); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, product.ID); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// authorize is the single owner-equality capability check applied to every
// product mutation.
func (s *ProductService) authorize(product *models.Product, actorID string) error {
	if !product.OwnedBy(actorID) {
		return apperrors.ErrNotAuthorized
	}
	return nil
}
