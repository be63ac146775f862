package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/marketbay/marketplace-backend/apperrors"
	"github.com/marketbay/marketplace-backend/cache"
	"github.com/marketbay/marketplace-backend/middleware"
	"github.com/marketbay/marketplace-backend/models"
	"github.com/marketbay/marketplace-backend/services"
)

type ProductController struct {
	products *services.ProductService
	cache    *cache.ProductCache
}

func NewProductController(products *services.ProductService, productCache *cache.ProductCache) *ProductController {
	return &ProductController{products: products, cache: productCache}
}

type createProductRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price" binding:"min=0"`
	Currency    string  `json:"currency"`
	Quantity    int     `json:"quantity" binding:"min=0"`
	Condition   string  `json:"condition"`
	Image       string  `json:"image"`
	ListingType string  `json:"type"`
}

type updateProductRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price"`
	Currency    *string  `json:"currency"`
	Quantity    *int     `json:"quantity"`
	Condition   *string  `json:"condition"`
	Image       *string  `json:"image"`
	ListingType *string  `json:"type"`
}

// GetProducts lists all products, newest first, through the Redis cache.
func (pc *ProductController) GetProducts(c *gin.Context) {
	ctx := c.Request.Context()
	if products, ok := pc.cache.GetProductList(ctx); ok {
		c.JSON(http.StatusOK, products)
		return
	}

	products, err := pc.products.List(ctx)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	pc.cache.SetProductList(ctx, products)
	c.JSON(http.StatusOK, products)
}

// GetProduct returns one product by id.
func (pc *ProductController) GetProduct(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if product, ok := pc.cache.GetProduct(ctx, id); ok {
		c.JSON(http.StatusOK, product)
		return
	}

	product, err := pc.products.Get(ctx, id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	pc.cache.SetProduct(ctx, product)
	c.JSON(http.StatusOK, product)
}

// CreateProduct lists a new product owned by the caller.
func (pc *ProductController) CreateProduct(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.ErrUnauthorized)
		return
	}

	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.ErrInvalidInput)
		return
	}

	product := &models.Product{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Currency:    req.Currency,
		Quantity:    req.Quantity,
		Condition:   req.Condition,
		Image:       req.Image,
		ListingType: req.ListingType,
	}
	created, err := pc.products.Create(c.Request.Context(), userID, product)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	pc.cache.Invalidate(c.Request.Context(), created.ID.Hex())
	c.JSON(http.StatusCreated, created)
}

// UpdateProduct applies a partial update; owner only.
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.ErrUnauthorized)
		return
	}

	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.ErrInvalidInput)
		return
	}

	updates := bson.M{}
	setIf(updates, "title", req.Title)
	setIf(updates, "description", req.Description)
	setIf(updates, "category", req.Category)
	setIf(updates, "price", req.Price)
	setIf(updates, "currency", req.Currency)
	setIf(updates, "quantity", req.Quantity)
	setIf(updates, "condition", req.Condition)
	setIf(updates, "image", req.Image)
	setIf(updates, "type", req.ListingType)
	if len(updates) == 0 {
		apperrors.Respond(c, apperrors.ErrInvalidInput)
		return
	}

	product, err := pc.products.Update(c.Request.Context(), userID, c.Param("id"), updates)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	pc.cache.Invalidate(c.Request.Context(), product.ID.Hex())
	c.JSON(http.StatusOK, product)
}

// DeleteProduct removes a listing; owner only.
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.ErrUnauthorized)
		return
	}

	if err := pc.products.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		apperrors.Respond(c, err)
		return
	}
	pc.cache.Invalidate(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

func setIf[T any](updates bson.M, key string, value *T) {
	if value != nil {
		updates[key] = *value
	}
}
