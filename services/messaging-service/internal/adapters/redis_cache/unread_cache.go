package redis_cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/services/messaging-service/internal/core/port"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	keyPrefix           = "messaging:unread:"
	generationKeyPrefix = "messaging:unread-gen:"

	// поколение живет заметно дольше самого счетчика
	generationTTL = 24 * time.Hour
)

// setIfGeneration пишет счетчик, только если поколение не менялось с момента чтения.
// KEYS[1] - счетчик, KEYS[2] - поколение; ARGV: поколение, значение, TTL в мс.
var setIfGeneration = redis.NewScript(`
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// Config - подключение к Redis.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient создает клиента и проверяет соединение.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// UnreadCache хранит число непрочитанных уведомлений пользователя с TTL.
type UnreadCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ port.UnreadCounterCachePort = (*UnreadCache)(nil)

func NewUnreadCache(client *redis.Client, ttl time.Duration) *UnreadCache {
	return &UnreadCache{client: client, ttl: ttl}
}

func unreadKey(userID uuid.UUID) string {
	return keyPrefix + userID.String()
}

func generationKey(userID uuid.UUID) string {
	return generationKeyPrefix + userID.String()
}

func (c *UnreadCache) Get(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	n, err := c.client.Get(ctx, unreadKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read unread counter: %w", err)
	}
	return n, true, nil
}

func (c *UnreadCache) Generation(ctx context.Context, userID uuid.UUID) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read unread counter generation: %w", err)
	}
	return gen, nil
}

func (c *UnreadCache) Set(ctx context.Context, userID uuid.UUID, count, generation int64) (bool, error) {
	stored, err := setIfGeneration.Run(ctx, c.client,
		[]string{unreadKey(userID), generationKey(userID)},
		generation, count, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to store unread counter: %w", err)
	}
	return stored == 1, nil
}

// Invalidate удаляет счетчик и сдвигает поколение одной транзакцией.
func (c *UnreadCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(userID))
		pipe.Expire(ctx, generationKey(userID), generationTTL)
		pipe.Del(ctx, unreadKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate unread counter: %w", err)
	}
	return nil
}

// NoopCache используется, когда Redis выключен: каждый запрос идет в БД.
type NoopCache struct{}

var _ port.UnreadCounterCachePort = NoopCache{}

func (NoopCache) Get(context.Context, uuid.UUID) (int64, bool, error)        { return 0, false, nil }
func (NoopCache) Generation(context.Context, uuid.UUID) (int64, error)       { return 0, nil }
func (NoopCache) Set(context.Context, uuid.UUID, int64, int64) (bool, error) { return false, nil }
func (NoopCache) Invalidate(context.Context, uuid.UUID) error                { return nil }
