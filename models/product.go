package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultCurrency is applied when a product was listed without one.
const DefaultCurrency = "MMK"

type Product struct {
	ID          primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	Category    string             `json:"category" bson:"category"`
	Price       float64            `json:"price" bson:"price"`
	Currency    string             `json:"currency,omitempty" bson:"currency,omitempty"`
	Quantity    int                `json:"quantity" bson:"quantity"`
	Condition   string             `json:"condition,omitempty" bson:"condition,omitempty"`
	Image       string             `json:"image,omitempty" bson:"image,omitempty"`
	ListingType string             `json:"type,omitempty" bson:"type,omitempty"`
	UserID      string             `json:"user" bson:"user"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// OwnedBy reports whether userID is the listing owner. It is the single
// capability check used by product mutation and the self-purchase guard.
func (p *Product) OwnedBy(userID string) bool {
	return p.UserID != "" && p.UserID == userID
}

// PriceCurrency returns the product currency, falling back to the default.
func (p *Product) PriceCurrency() string {
	if p.Currency == "" {
		return DefaultCurrency
	}
	return p.Currency
}
