package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/yuzvak/pdv-service/internal/application/ports"
	"github.com/yuzvak/pdv-service/internal/domain/catalog"
	"github.com/yuzvak/pdv-service/internal/infrastructure/monitoring"
)

const productsVersionKey = "products:version"

// ProductCache stores product listings under a generation number.
// Invalidation bumps the generation, so stale entries are never read again
// and simply expire.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.ProductCache = (*ProductCache)(nil)

func NewProductCache(conn *Connection, ttl time.Duration) *ProductCache {
	return &ProductCache{client: conn.GetClient(), ttl: ttl}
}

// GetProducts resolves the current generation once. On a miss the returned
// entry is the key a fill must use: if the generation moves before the fill,
// the fill lands in a generation nobody reads.
func (c *ProductCache) GetProducts(ctx context.Context, key string) ([]catalog.Product, string, bool, error) {
	entry, err := c.entryKey(ctx, key)
	if err != nil {
		return nil, "", false, err
	}

	data, err := c.client.Get(ctx, entry).Bytes()
	if err == redis.Nil {
		monitoring.RecordProductCache(false)
		return nil, entry, false, nil
	}
	if err != nil {
		return nil, "", false, errors.Wrapf(err, "get %s", entry)
	}

	var products []catalog.Product
	if err := json.Unmarshal(data, &products); err != nil {
		// unreadable entries count as a miss and get overwritten
		monitoring.RecordProductCache(false)
		return nil, entry, false, nil
	}

	monitoring.RecordProductCache(true)
	return products, entry, true, nil
}

// SetProducts fills an entry returned by GetProducts.
func (c *ProductCache) SetProducts(ctx context.Context, entry string, products []catalog.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return errors.Wrap(err, "encode products")
	}
	return errors.Wrapf(c.client.Set(ctx, entry, data, c.ttl).Err(), "set %s", entry)
}

func (c *ProductCache) InvalidateProducts(ctx context.Context) error {
	return errors.Wrap(c.client.Incr(ctx, productsVersionKey).Err(), "bump products version")
}

func (c *ProductCache) entryKey(ctx context.Context, key string) (string, error) {
	version, err := c.client.Get(ctx, productsVersionKey).Result()
	if err == redis.Nil {
		version = "0"
	} else if err != nil {
		return "", errors.Wrap(err, "get products version")
	}
	return "products:v" + version + ":" + key, nil
}
