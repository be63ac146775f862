package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderLine is a value snapshot of the product at order-creation time.
// Later edits or deletion of the listing never change historical orders.
type OrderLine struct {
	ProductID primitive.ObjectID `json:"product" bson:"product"`
	Title     string             `json:"title" bson:"title"`
	Image     string             `json:"image,omitempty" bson:"image,omitempty"`
	Quantity  int                `json:"quantity" bson:"quantity"`
	Price     float64            `json:"price" bson:"price"`
	Currency  string             `json:"currency" bson:"currency"`
}

func (l OrderLine) Subtotal() float64 {
	return l.Price * float64(l.Quantity)
}

// Order is immutable once created. All lines share SellerID (one order per
// seller per checkout event) and TotalPrice is computed once at creation.
type Order struct {
	ID          primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	OrderNumber string             `json:"order_number" bson:"order_number"`
	BuyerID     string             `json:"buyer" bson:"buyer"`
	SellerID    string             `json:"seller" bson:"seller"`
	Products    []OrderLine        `json:"products" bson:"products"`
	TotalPrice  float64            `json:"totalPrice" bson:"total_price"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
}

// OrderEvent is the payload published after an order is persisted.
type OrderEvent struct {
	Event       string    `json:"event"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BuyerID     string    `json:"buyer_id"`
	SellerID    string    `json:"seller_id"`
	TotalPrice  float64   `json:"total_price"`
	Timestamp   time.Time `json:"timestamp"`
}
