package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marketbay/marketplace-backend/apperrors"
	"github.com/marketbay/marketplace-backend/middleware"
	"github.com/marketbay/marketplace-backend/services"
)

type CartController struct {
	carts *services.CartService
}

func NewCartController(carts *services.CartService) *CartController {
	return &CartController{carts: carts}
}

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0"`
}

// GetCart returns the caller's cart, empty when none exists.
func (cc *CartController) GetCart(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.ErrUnauthorized)
		return
	}

	cart, err := cc.carts.GetCart(c.Request.Context(), userID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// AddItem adds a product to the cart, additive for duplicates.
func (cc *CartController) AddItem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.ErrUnauthorized)
		return
	}

	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.ErrInvalidInput)
		return
	}

	cart, err := cc.carts.AddItem(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// UpdateItem sets a cart item's quantity; zero removes it.
func (cc *CartController) UpdateItem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.ErrUnauthorized)
		return
	}

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.ErrInvalidInput)
		return
	}

	cart, err := cc.carts.UpdateItem(c.Request.Context(), userID, c.Param("id"), *req.Quantity)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if cart == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Last item removed — cart deleted"})
		return
	}
	c.JSON(http.StatusOK, cart)
}

// RemoveItem removes a product from the cart.
func (cc *CartController) RemoveItem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.ErrUnauthorized)
		return
	}

	cart, err := cc.carts.RemoveItem(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if cart == nil {
		c.JSON(http.StatusOK, gin.H{"message": "All items removed — cart deleted"})
		return
	}
	c.JSON(http.StatusOK, cart)
}

// ClearCart deletes the whole cart document.
func (cc *CartController) ClearCart(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.ErrUnauthorized)
		return
	}

	if err := cc.carts.Clear(c.Request.Context(), userID); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared and deleted"})
}
