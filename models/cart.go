package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CartItem struct {
	ProductID primitive.ObjectID `json:"product_id" bson:"product"`
	Quantity  int                `json:"quantity" bson:"quantity"`
}

// Cart is one document per user. An empty cart is never persisted; the
// document is deleted when its last item is removed.
type Cart struct {
	ID        primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	UserID    string             `json:"user_id" bson:"user"`
	Items     []CartItem         `json:"items" bson:"items"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// ItemIndex returns the position of productID in the cart, or -1.
func (c *Cart) ItemIndex(productID primitive.ObjectID) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}
