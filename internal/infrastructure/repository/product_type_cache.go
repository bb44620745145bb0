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

type productTypeDoc struct {
	Shop        string    `bson:"shop"`
	ProductID   int64     `bson:"product_id"`
	ProductType *string   `bson:"product_type"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// MongoProductTypeCache implements ports.ProductTypeCache using MongoDB.
// Documents are keyed by the (shop, product_id) pair; a stored nil
// product_type records "resolved, has no type" so the id is not re-queried.
type MongoProductTypeCache struct {
	types *mongo.Collection
}

// NewMongoProductTypeCache creates a new MongoDB product-type cache.
func NewMongoProductTypeCache(db *mongo.Database) ports.ProductTypeCache {
	return &MongoProductTypeCache{
		types: db.Collection("product_types"),
	}
}

// Lookup returns an entry for every stored id; ids with no document are
// absent from the result, which the caller treats as a cache miss.
func (c *MongoProductTypeCache) Lookup(ctx context.Context, shopDomain string, ids []int64) (map[int64]domain.CachedProductType, error) {
	out := make(map[int64]domain.CachedProductType, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	filter := bson.M{"shop": shopDomain, "product_id": bson.M{"$in": ids}}
	cursor, err := c.types.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to look up product types: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc productTypeDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode product type: %w", err)
		}
		out[doc.ProductID] = domain.CachedProductType{Value: doc.ProductType}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return out, nil
}

// Upsert writes the given values in one unordered bulk write; last write wins
// per id.
func (c *MongoProductTypeCache) Upsert(ctx context.Context, shopDomain string, types map[int64]*string) error {
	if len(types) == 0 {
		return nil
	}

	now := time.Now()
	models := make([]mongo.WriteModel, 0, len(types))
	for id, value := range types {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"shop": shopDomain, "product_id": id}).
			SetUpdate(bson.M{"$set": bson.M{"product_type": value, "updated_at": now}}).
			SetUpsert(true))
	}

	opts := options.BulkWrite().SetOrdered(false)
	if _, err := c.types.BulkWrite(ctx, models, opts); err != nil {
		return fmt.Errorf("failed to upsert product types: %w", err)
	}
	return nil
}

// DeleteShop drops every cached entry for the shop.
func (c *MongoProductTypeCache) DeleteShop(ctx context.Context, shopDomain string) error {
	if _, err := c.types.DeleteMany(ctx, bson.M{"shop": shopDomain}); err != nil {
		return fmt.Errorf("failed to delete product types: %w", err)
	}
	return nil
}
