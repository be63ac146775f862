package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marketbay/marketplace-backend/apperrors"
	"github.com/marketbay/marketplace-backend/middleware"
	"github.com/marketbay/marketplace-backend/services"
)

type OrderController struct {
	checkout *services.CheckoutService
}

func NewOrderController(checkout *services.CheckoutService) *OrderController {
	return &OrderController{checkout: checkout}
}

type checkoutRequest struct {
	SelectedProductIDs []string `json:"selectedProductIds"`
}

type createOrderRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// Checkout converts the caller's cart (or a selected subset) into orders.
func (oc *OrderController) Checkout(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.ErrUnauthorized)
		return
	}

	var req checkoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.Respond(c, apperrors.ErrInvalidInput)
			return
		}
	}

	orders, cart, err := oc.checkout.Checkout(c.Request.Context(), userID, req.SelectedProductIDs)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	var cartBody interface{}
	if cart != nil {
		cartBody = cart
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Checkout successful",
		"orders":  orders,
		"cart":    cartBody,
	})
}

// CreateOrder places a single-product order outside the cart flow.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.ErrUnauthorized)
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.ErrInvalidInput)
		return
	}

	order, err := oc.checkout.CreateOrder(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetItemsIBuy lists the caller's purchases, newest first.
func (oc *OrderController) GetItemsIBuy(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.ErrUnauthorized)
		return
	}

	orders, err := oc.checkout.ItemsBought(c.Request.Context(), userID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetItemsISell lists orders placed against the caller's listings.
func (oc *OrderController) GetItemsISell(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.ErrUnauthorized)
		return
	}

	orders, err := oc.checkout.ItemsSold(c.Request.Context(), userID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}
