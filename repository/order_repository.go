package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marketbay/marketplace-backend/models"
)

// OrderRepository stores immutable orders. Delete exists only so checkout
// can undo orders created earlier in a failed attempt.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByBuyer(ctx context.Context, buyerID string) ([]models.Order, error)
	FindBySeller(ctx context.Context, sellerID string) ([]models.Order, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type MongoOrderRepository struct {
	collection *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{collection: db.Collection("orders")}
}

func (r *MongoOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	result, err := r.collection.InsertOne(ctx, order)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		order.ID = oid
	}
	return nil
}

func (r *MongoOrderRepository) FindByBuyer(ctx context.Context, buyerID string) ([]models.Order, error) {
	return r.find(ctx, bson.M{"buyer": buyerID})
}

func (r *MongoOrderRepository) FindBySeller(ctx context.Context, sellerID string) ([]models.Order, error) {
	return r.find(ctx, bson.M{"seller": sellerID})
}

func (r *MongoOrderRepository) find(ctx context.Context, filter bson.M) ([]models.Order, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *MongoOrderRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
