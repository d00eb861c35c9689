package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/farmfresh/internal/config"
	"github.com/fjod/farmfresh/internal/imagestore"
	"github.com/fjod/farmfresh/internal/repository"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const connectTimeout = 10 * time.Second

type repositories struct {
	users      repository.UserRepository
	products   repository.ProductRepository
	categories repository.CategoryRepository
	orders     repository.OrderRepository
	outbox     repository.OutboxRepository
	tx         repository.Transactor
}

func openDatabase(ctx context.Context, cfg *config.Config) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return nil, err
	}
	if err := repository.CreateIndexes(ctx, db); err != nil {
		closeDatabase(db)
		return nil, err
	}
	return db, nil
}

func closeDatabase(db *mongo.Database) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Client().Disconnect(ctx); err != nil {
		slog.Error("failed to disconnect from MongoDB", "error", err)
	}
}

func newRepositories(db *mongo.Database) repositories {
	return repositories{
		users:      repository.NewUserRepository(db),
		products:   repository.NewProductRepository(db),
		categories: repository.NewCategoryRepository(db),
		orders:     repository.NewOrderRepository(db),
		outbox:     repository.NewOutboxRepository(db),
		tx:         repository.NewTransactor(db),
	}
}

func openRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func newImageStore(ctx context.Context, cfg *config.Config) (imagestore.Store, error) {
	if cfg.ImageStore != "s3" {
		return imagestore.NewInlineStore(), nil
	}
	return imagestore.NewS3Store(ctx, imagestore.S3Config{
		Bucket:        cfg.S3Bucket,
		Region:        cfg.S3Region,
		Endpoint:      cfg.S3Endpoint,
		PublicBaseURL: cfg.S3PublicBaseURL,
	})
}
