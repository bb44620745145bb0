package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shopify-sales-insights/internal/domain"
	"shopify-sales-insights/internal/ports"
)

// MongoShopRepository implements ports.ShopRepository using MongoDB.
type MongoShopRepository struct {
	shops *mongo.Collection
}

// NewMongoShopRepository creates a new MongoDB shop repository.
func NewMongoShopRepository(db *mongo.Database) ports.ShopRepository {
	return &MongoShopRepository{
		shops: db.Collection("shops"),
	}
}

// SaveShop creates or updates the record for shop.Domain (upsert semantics:
// at most one record per shop domain).
func (r *MongoShopRepository) SaveShop(ctx context.Context, shop *domain.Shop) error {
	now := time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"domain": shop.Domain}
	update := bson.M{
		"$set": bson.M{
			"access_token":  shop.AccessToken,
			"scopes":        shop.Scopes,
			"iana_timezone": shop.IANATimezone,
			"currency":      shop.Currency,
			"updated_at":    now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}

	if _, err := r.shops.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save shop: %w", err)
	}
	return nil
}

// GetShop retrieves a shop by domain, returning (nil, nil) when absent.
func (r *MongoShopRepository) GetShop(ctx context.Context, shopDomain string) (*domain.Shop, error) {
	var shop domain.Shop
	err := r.shops.FindOne(ctx, bson.M{"domain": shopDomain}).Decode(&shop)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	return &shop, nil
}

// DeleteShop removes the shop record.
func (r *MongoShopRepository) DeleteShop(ctx context.Context, shopDomain string) error {
	if _, err := r.shops.DeleteOne(ctx, bson.M{"domain": shopDomain}); err != nil {
		return fmt.Errorf("failed to delete shop: %w", err)
	}
	return nil
}

// CountShops returns the number of installed shops.
func (r *MongoShopRepository) CountShops(ctx context.Context) (int64, error) {
	n, err := r.shops.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count shops: %w", err)
	}
	return n, nil
}
