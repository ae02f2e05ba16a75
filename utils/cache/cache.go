package cache

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/ristretto/v2"
)

type Cache[V any] struct {
	c   *ristretto.Cache[string, V]
	ttl time.Duration
}

func New[V any](ttl time.Duration) (*Cache[V], error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters: 1e4,
		MaxCost:     1e3,
		BufferItems: 64,
		OnReject: func(item *ristretto.Item[V]) {
			log.Warnf("Cache item rejected: key=%d, value=%v", item.Key, item.Value)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return &Cache[V]{c: c, ttl: ttl}, nil
}

func (c *Cache[V]) Set(key string, value V) error {
	if ok := c.c.SetWithTTL(key, value, 1, c.ttl); !ok {
		return fmt.Errorf("failed to set value in cache")
	}
	c.c.Wait()
	return nil
}

func (c *Cache[V]) Get(key string) (V, bool) {
	return c.c.Get(key)
}

func (c *Cache[V]) Del(key string) {
	c.c.Del(key)
}

func (c *Cache[V]) Close() {
	c.c.Close()
}
