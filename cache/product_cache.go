package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/marketbay/marketplace-backend/models"
)

const (
	productCachePrefix = "product:detail:"
	productListPrefix  = "products:v:"
	cacheVersionKey    = "products:version"

	defaultTTL = 5 * time.Minute
)

// ProductCache is a Redis read cache for the catalog. List entries are keyed
// by a version counter; bumping the version on any mutation invalidates every
// cached list at once.
type ProductCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewProductCache(client *redis.Client) *ProductCache {
	return &ProductCache{redis: client, ttl: defaultTTL}
}

func (c *ProductCache) GetProduct(ctx context.Context, productID string) (*models.Product, bool) {
	if c == nil || c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, productCachePrefix+productID).Result()
	if err != nil {
		return nil, false
	}
	var product models.Product
	if err := json.Unmarshal([]byte(data), &product); err != nil {
		zap.L().Warn("Failed to unmarshal cached product", zap.Error(err))
		return nil, false
	}
	return &product, true
}

func (c *ProductCache) SetProduct(ctx context.Context, product *models.Product) {
	if c == nil || c.redis == nil {
		return
	}
	data, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, productCachePrefix+product.ID.Hex(), data, c.ttl).Err(); err != nil {
		zap.L().Warn("Failed to cache product", zap.Error(err))
	}
}

func (c *ProductCache) GetProductList(ctx context.Context) ([]models.Product, bool) {
	if c == nil || c.redis == nil {
		return nil, false
	}
	version, err := c.version(ctx)
	if err != nil || version == 0 {
		return nil, false
	}
	data, err := c.redis.Get(ctx, productListPrefix+strconv.FormatInt(version, 10)).Result()
	if err != nil {
		return nil, false
	}
	var products []models.Product
	if err := json.Unmarshal([]byte(data), &products); err != nil {
		return nil, false
	}
	return products, true
}

func (c *ProductCache) SetProductList(ctx context.Context, products []models.Product) {
	if c == nil || c.redis == nil {
		return
	}
	version, err := c.version(ctx)
	if err != nil {
		return
	}
	if version == 0 {
		version = 1
		if err := c.redis.Set(ctx, cacheVersionKey, version, 0).Err(); err != nil {
			return
		}
	}
	data, err := json.Marshal(products)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, productListPrefix+strconv.FormatInt(version, 10), data, c.ttl).Err(); err != nil {
		zap.L().Warn("Failed to cache product list", zap.Error(err))
	}
}

// Invalidate drops the detail entry and bumps the list version after a
// product mutation. Stock movements from checkout are not invalidated here;
// those entries age out with the TTL.
func (c *ProductCache) Invalidate(ctx context.Context, productID string) {
	if c == nil || c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, productCachePrefix+productID).Err(); err != nil {
		zap.L().Warn("Failed to drop cached product", zap.Error(err))
	}
	if err := c.redis.Incr(ctx, cacheVersionKey).Err(); err != nil {
		zap.L().Warn("Failed to bump product cache version", zap.Error(err))
	}
}

func (c *ProductCache) version(ctx context.Context) (int64, error) {
	val, err := c.redis.Get(ctx, cacheVersionKey).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}
