// internal/store/preferences/cache_test.go
package preferences

import (
	"context"
	"errors"
	"testing"
	"time"

	"family-notify/internal/common/logger"
	"family-notify/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type countingGetter struct {
	calls int
	prefs *models.NotificationPreferences
	err   error
}

func (g *countingGetter) GetPreferences(ctx context.Context, recipientID string) (*models.NotificationPreferences, error) {
	g.calls++
	return g.prefs, g.err
}

func testPrefs(recipientID string) *models.NotificationPreferences {
	return &models.NotificationPreferences{
		RecipientID: recipientID,
		Channels:    map[models.DeliveryChannel]bool{models.ChannelPush: true},
		Types:       map[models.NotificationType]bool{models.TypeCrisisAlert: true},
		Language:    models.LanguageEnglish,
	}
}

func TestCache_ReadThroughAndHit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	inner := &countingGetter{prefs: testPrefs("member-1")}
	cache := NewCache(inner, rdb, 2*time.Minute, logger.NewTestLogger(t))

	first, err := cache.GetPreferences(context.Background(), "member-1")
	assert.NoError(t, err)
	assert.Equal(t, inner.prefs, first)
	assert.Equal(t, 1, inner.calls)

	// Entry landed in Redis with the configured TTL.
	assert.True(t, mr.Exists("notify:prefs:member-1"))
	assert.Equal(t, 2*time.Minute, mr.TTL("notify:prefs:member-1"))

	second, err := cache.GetPreferences(context.Background(), "member-1")
	assert.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls, "cache hit must not reach the store")
}

func TestCache_MissingRecordNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	inner := &countingGetter{prefs: nil}
	cache := NewCache(inner, rdb, time.Minute, logger.NewTestLogger(t))

	prefs, err := cache.GetPreferences(context.Background(), "member-2")
	assert.NoError(t, err)
	assert.Nil(t, prefs)
	assert.False(t, mr.Exists("notify:prefs:member-2"))

	_, _ = cache.GetPreferences(context.Background(), "member-2")
	assert.Equal(t, 2, inner.calls)
}

func TestCache_InnerErrorPropagates(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	inner := &countingGetter{err: errors.New("connection refused")}
	cache := NewCache(inner, rdb, time.Minute, logger.NewTestLogger(t))

	prefs, err := cache.GetPreferences(context.Background(), "member-3")
	assert.Nil(t, prefs)
	assert.Error(t, err)
}

func TestCache_RedisDownFallsThrough(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("notify:prefs:member-4").SetErr(errors.New("redis: connection refused"))
	mock.Regexp().ExpectSet("notify:prefs:member-4", `.*`, time.Minute).
		SetErr(errors.New("redis: connection refused"))

	inner := &countingGetter{prefs: testPrefs("member-4")}
	cache := NewCache(inner, rdb, time.Minute, logger.NewTestLogger(t))

	prefs, err := cache.GetPreferences(context.Background(), "member-4")
	assert.NoError(t, err)
	assert.Equal(t, inner.prefs, prefs)
	assert.Equal(t, 1, inner.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_CorruptEntryOverwritten(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Set("notify:prefs:member-5", "{{not json")

	inner := &countingGetter{prefs: testPrefs("member-5")}
	cache := NewCache(inner, rdb, time.Minute, logger.NewTestLogger(t))

	prefs, err := cache.GetPreferences(context.Background(), "member-5")
	assert.NoError(t, err)
	assert.Equal(t, inner.prefs, prefs)
	assert.Equal(t, 1, inner.calls)

	raw, err := mr.Get("notify:prefs:member-5")
	assert.NoError(t, err)
	assert.Contains(t, raw, "member-5")
}
