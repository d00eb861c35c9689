package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/farmfresh/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) OrderRepository {
	return &orderRepository{
		collection: db.Collection(collectionOrders),
	}
}

func orderIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{
			// orders placed without a key are not constrained
			Keys: bson.D{{Key: "user", Value: 1}, {Key: "idempotencyKey", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"idempotencyKey": bson.M{"$exists": true}}),
		},
	}
}

func (m *orderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	now := time.Now()
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	order.CreatedAt = now
	order.UpdatedAt = now

	if _, err := m.collection.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (m *orderRepository) GetOrder(ctx context.Context, id primitive.ObjectID) (*domain.Order, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *orderRepository) GetOrderByIdempotencyKey(
	ctx context.Context,
	userID primitive.ObjectID,
	key string) (*domain.Order, error) {

	return m.findOne(ctx, bson.M{"user": userID, "idempotencyKey": key})
}

func (m *orderRepository) findOne(ctx context.Context, filter bson.M) (*domain.Order, error) {
	var order domain.Order
	err := m.collection.FindOne(ctx, filter).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (m *orderRepository) ListOrdersByUser(ctx context.Context, userID primitive.ObjectID) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := m.collection.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	orders := make([]*domain.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

// ListOrdersWithUsers returns every order newest first, with the owner's name and
// email joined in. Orders whose owner no longer exists carry a nil user.
func (m *orderRepository) ListOrdersWithUsers(ctx context.Context) ([]*domain.OrderWithUser, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         collectionUsers,
			"localField":   "user",
			"foreignField": "_id",
			"as":           "user",
		}}},
		{{Key: "$unwind", Value: bson.M{
			"path":                       "$user",
			"preserveNullAndEmptyArrays": true,
		}}},
		{{Key: "$project", Value: bson.M{
			"idempotencyKey": 0,
			"user.password":  0,
			"user.role":      0,
			"user.cart":      0,
			"user.addresses": 0,
			"user.createdAt": 0,
		}}},
	}

	cursor, err := m.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate orders: %w", err)
	}

	orders := make([]*domain.OrderWithUser, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

func (m *orderRepository) UpdateOrderStatus(
	ctx context.Context,
	id primitive.ObjectID,
	status domain.OrderStatus,
	notFrom ...domain.OrderStatus) (*domain.Order, error) {

	filter := bson.M{"_id": id}
	if len(notFrom) > 0 {
		filter["status"] = bson.M{"$nin": notFrom}
	}
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order domain.Order
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if len(notFrom) == 0 {
			return nil, ErrOrderNotFound
		}
		return nil, m.missedUpdate(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	return &order, nil
}

// missedUpdate tells a missing order apart from one whose status did not match.
func (m *orderRepository) missedUpdate(ctx context.Context, id primitive.ObjectID) error {
	n, err := m.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check order: %w", err)
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return ErrOrderStatusMoved
}

func (m *orderRepository) ScanSalesRecords(ctx context.Context, fn func(domain.SalesRecord) error) error {
	opts := options.Find().SetProjection(bson.M{
		"totalAmount": 1,
		"status":      1,
		"createdAt":   1,
		"items":       1,
	})
	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return fmt.Errorf("failed to query orders: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var record domain.SalesRecord
		if err := cursor.Decode(&record); err != nil {
			return fmt.Errorf("failed to decode order: %w", err)
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("cursor iteration error: %w", err)
	}
	return nil
}
