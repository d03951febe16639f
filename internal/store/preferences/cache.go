package preferences

import (
	"context"
	"encoding/json"
	"time"

	"family-notify/internal/common/logger"
	"family-notify/internal/models"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "notify:prefs:"

// Getter is the read contract the cache decorates.
type Getter interface {
	GetPreferences(ctx context.Context, recipientID string) (*models.NotificationPreferences, error)
}

// Cache is a Redis read-through decorator around a preference Getter. The TTL
// bounds staleness; preferences are read-mostly and a few minutes of lag is
// acceptable for this domain. Redis being down never fails a read.
type Cache struct {
	inner Getter
	rdb   *redis.Client
	ttl   time.Duration
	log   logger.Logger
}

func NewCache(inner Getter, rdb *redis.Client, ttl time.Duration, log logger.Logger) *Cache {
	return &Cache{
		inner: inner,
		rdb:   rdb,
		ttl:   ttl,
		log:   log.WithFields(map[string]interface{}{"store": "preferences-cache"}),
	}
}

func (c *Cache) GetPreferences(ctx context.Context, recipientID string) (*models.NotificationPreferences, error) {
	key := cacheKeyPrefix + recipientID

	if raw, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var prefs models.NotificationPreferences
		if err := json.Unmarshal([]byte(raw), &prefs); err == nil {
			return &prefs, nil
		}
		// Unreadable entry: fall through and overwrite it below.
	} else if err != redis.Nil {
		c.log.Warn("preference cache read failed", map[string]interface{}{
			"recipientId": recipientID,
			"error":       err.Error(),
		})
	}

	prefs, err := c.inner.GetPreferences(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		// No stored record. Not cached: the member may customize at any time
		// and the default synthesis is cheap.
		return nil, nil
	}

	if raw, err := json.Marshal(prefs); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.log.Warn("preference cache write failed", map[string]interface{}{
				"recipientId": recipientID,
				"error":       err.Error(),
			})
		}
	}

	return prefs, nil
}
