package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/marketbay/marketplace-backend/controllers"
)

// RegisterRoutes wires all resource routes. Reads on the catalog are public;
// everything else requires an authenticated principal.
func RegisterRoutes(
	r *gin.Engine,
	auth gin.HandlerFunc,
	products *controllers.ProductController,
	carts *controllers.CartController,
	orders *controllers.OrderController,
) {
	productRoutes := r.Group("/products")
	{
		productRoutes.GET("/", products.GetProducts)
		productRoutes.GET("/:id", products.GetProduct)
		productRoutes.POST("/", auth, products.CreateProduct)
		productRoutes.PUT("/:id", auth, products.UpdateProduct)
		productRoutes.DELETE("/:id", auth, products.DeleteProduct)
	}

	cartRoutes := r.Group("/cart", auth)
	{
		cartRoutes.GET("/", carts.GetCart)
		cartRoutes.POST("/", carts.AddItem)
		cartRoutes.PUT("/:id", carts.UpdateItem)
		cartRoutes.DELETE("/:id", carts.RemoveItem)
		cartRoutes.DELETE("/", carts.ClearCart)
	}

	orderRoutes := r.Group("/orders", auth)
	{
		orderRoutes.POST("/", orders.CreateOrder)
		orderRoutes.POST("/checkout", orders.Checkout)
		orderRoutes.GET("/buy", orders.GetItemsIBuy)
		orderRoutes.GET("/sell", orders.GetItemsISell)
	}
}
