package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marketbay/marketplace-backend/models"
)

// CartRepository stores one cart document per user. Callers are responsible
// for never saving an empty cart; they delete it instead.
type CartRepository interface {
	FindByUser(ctx context.Context, userID string) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	DeleteByUser(ctx context.Context, userID string) error
}

type MongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{collection: db.Collection("carts")}
}

func (r *MongoCartRepository) FindByUser(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.collection.FindOne(ctx, bson.M{"user": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// Save upserts the user's cart document.
func (r *MongoCartRepository) Save(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"items":      cart.Items,
		"updated_at": cart.UpdatedAt,
	}}
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"user": cart.UserID}, update, opts)
	return err
}

func (r *MongoCartRepository) DeleteByUser(ctx context.Context, userID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"user": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
