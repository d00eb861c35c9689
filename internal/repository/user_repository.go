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

type userRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{
		collection: db.Collection(collectionUsers),
	}
}

func userIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
}

func (m *userRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	// $push on a null field fails, so both arrays start empty
	if user.Cart == nil {
		user.Cart = []domain.CartEntry{}
	}
	if user.Addresses == nil {
		user.Addresses = []domain.Address{}
	}

	_, err := m.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (m *userRepository) GetUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *userRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.findOne(ctx, bson.M{"email": email})
}

func (m *userRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	err := m.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (m *userRepository) SetRole(ctx context.Context, id primitive.ObjectID, role domain.Role) error {
	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (m *userRepository) SetCartQuantity(
	ctx context.Context,
	userID, productID primitive.ObjectID,
	expected, quantity int) error {

	var (
		result *mongo.UpdateResult
		err    error
	)

	if expected == 0 {
		// Add new entry, guarded so a product never appears twice
		filter := bson.M{
			"_id":          userID,
			"cart.product": bson.M{"$ne": productID},
		}
		update := bson.M{
			"$push": bson.M{"cart": domain.CartEntry{ProductID: productID, Quantity: quantity}},
		}
		result, err = m.collection.UpdateOne(ctx, filter, update)
	} else {
		// Update existing entry only if nobody changed it since it was read
		filter := bson.M{
			"_id": userID,
			"cart": bson.M{"$elemMatch": bson.M{
				"product":  productID,
				"quantity": expected,
			}},
		}
		update := bson.M{
			"$set": bson.M{"cart.$[elem].quantity": quantity},
		}
		arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{
				bson.M{"elem.product": productID},
			},
		})
		result, err = m.collection.UpdateOne(ctx, filter, update, arrayFilters)
	}
	if err != nil {
		return fmt.Errorf("failed to set cart quantity: %w", err)
	}

	if result.MatchedCount == 0 {
		if errExists := m.ensureExists(ctx, userID); errExists != nil {
			return errExists
		}
		return ErrCartConflict
	}
	return nil
}

func (m *userRepository) RemoveCartEntry(ctx context.Context, userID, productID primitive.ObjectID) error {
	filter := bson.M{"_id": userID}
	update := bson.M{
		"$pull": bson.M{
			"cart": bson.M{"product": productID},
		},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove cart entry: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (m *userRepository) ClearCart(ctx context.Context, userID primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"cart": []domain.CartEntry{}}}

	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (m *userRepository) AddAddress(ctx context.Context, userID primitive.ObjectID, address domain.Address) error {
	if address.ID.IsZero() {
		address.ID = primitive.NewObjectID()
	}
	update := bson.M{"$push": bson.M{"addresses": address}}

	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to add address: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (m *userRepository) RemoveAddress(ctx context.Context, userID, addressID primitive.ObjectID) error {
	filter := bson.M{"_id": userID, "addresses._id": addressID}
	update := bson.M{"$pull": bson.M{"addresses": bson.M{"_id": addressID}}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove address: %w", err)
	}

	if result.MatchedCount == 0 {
		if errExists := m.ensureExists(ctx, userID); errExists != nil {
			return errExists
		}
		return ErrAddressNotFound
	}
	return nil
}

func (m *userRepository) ensureExists(ctx context.Context, userID primitive.ObjectID) error {
	count, err := m.collection.CountDocuments(ctx, bson.M{"_id": userID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}
