package config

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"todoitems/internal/adapter/http/helper"
	"todoitems/internal/core/telemetry"
	. "todoitems/pkg"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const defaultRateLimitKey = "default"

// routeBudgets are requests per minute for each route, keyed by client IP.
var routeBudgets = map[string]int{
	"GET /items":        100,
	"GET /items/:id":    100,
	"POST /items":       20,
	"PUT /items/:id":    20,
	"DELETE /items/:id": 10,
}

type RateLimitEndpointConfig struct {
	Requests int
	Window   time.Duration
	KeyFunc  func(*gin.Context) string
}

// RateLimitStore counts hits for a key inside a fixed window.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, resetTime time.Time, err error)
	Count() int
}

type RateLimiter struct {
	store   RateLimitStore
	config  map[string]RateLimitEndpointConfig
	logger  *zap.Logger
	metrics *telemetry.AppMetrics
	mutex   sync.RWMutex
}

type RateLimitEntry struct {
	Count     int
	ResetTime time.Time
}

// NewRateLimiter builds the limiter with per-route budgets. Routes without
// their own entry share the default budget from cfg.
func NewRateLimiter(cfg RateLimitConfig, store RateLimitStore, logger *zap.Logger, metrics *telemetry.AppMetrics) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	if store == nil {
		store = NewMemoryRateLimitStore()
	}

	rl := &RateLimiter{
		store:   store,
		config:  make(map[string]RateLimitEndpointConfig, len(routeBudgets)+1),
		logger:  logger,
		metrics: metrics,
	}

	for route, requests := range routeBudgets {
		rl.SetConfig(route, RateLimitEndpointConfig{Requests: requests, Window: time.Minute})
	}

	rl.SetConfig(defaultRateLimitKey, RateLimitEndpointConfig{Requests: cfg.Requests, Window: cfg.Window})

	return rl
}

func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		methodPath := c.Request.Method + " " + path
		config := rl.endpointConfig(methodPath)

		key := rl.generateKey(c, methodPath, config.KeyFunc)

		allowed, remaining, resetTime, err := rl.store.Allow(c.Request.Context(), key, config.Requests, config.Window)
		if err != nil {
			rl.logger.Error("Rate limit check failed",
				zap.String("key", key),
				zap.String("path", path),
				zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			if rl.metrics != nil {
				rl.metrics.RecordRateLimitHit(c.Request.Context(), path)
			}

			rl.logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.String("path", path),
				zap.Int("limit", config.Requests),
				zap.Duration("window", config.Window),
				zap.Any("stats", rl.GetStats()))

			retryAfter := int(time.Until(resetTime).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			helper.SendTooManyRequests(c, fmt.Sprintf("Too many requests. Limit: %d per %v", config.Requests, config.Window))
			return
		}

		if rl.metrics != nil {
			rl.metrics.RecordRateLimitAllowed(c.Request.Context(), path)
		}

		c.Next()
	}
}

func (rl *RateLimiter) endpointConfig(methodPath string) RateLimitEndpointConfig {
	rl.mutex.RLock()
	defer rl.mutex.RUnlock()

	if config, exists := rl.config[methodPath]; exists {
		return config
	}

	return rl.config[defaultRateLimitKey]
}

func (rl *RateLimiter) generateKey(c *gin.Context, path string, keyFunc func(*gin.Context) string) string {
	identifier := keyFunc(c)
	return fmt.Sprintf("rate_limit:%s:%s", path, identifier)
}

func (rl *RateLimiter) SetConfig(path string, config RateLimitEndpointConfig) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	if config.KeyFunc == nil {
		config.KeyFunc = GetClientIP
	}

	rl.config[path] = config
}

func (rl *RateLimiter) GetStats() map[string]any {
	rl.mutex.RLock()
	defer rl.mutex.RUnlock()

	return map[string]any{
		"active_entries": rl.store.Count(),
		"configs":        len(rl.config),
	}
}

// MemoryRateLimitStore keeps counters in process. Fine for a single instance.
type MemoryRateLimitStore struct {
	cache *cache.Cache
	mutex sync.Mutex
}

func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{
		cache: cache.New(5*time.Minute, 10*time.Minute),
	}
}

func (s *MemoryRateLimitStore) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, int, time.Time, error) {
	now := time.Now()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if entry, found := s.cache.Get(key); found {
		rateLimitEntry := entry.(RateLimitEntry)

		if now.Before(rateLimitEntry.ResetTime) {
			if rateLimitEntry.Count >= limit {
				return false, 0, rateLimitEntry.ResetTime, nil
			}

			rateLimitEntry.Count++
			s.cache.Set(key, rateLimitEntry, rateLimitEntry.ResetTime.Sub(now))

			return true, limit - rateLimitEntry.Count, rateLimitEntry.ResetTime, nil
		}
	}

	resetTime := now.Add(window)
	s.cache.Set(key, RateLimitEntry{Count: 1, ResetTime: resetTime}, window)

	return true, limit - 1, resetTime, nil
}

func (s *MemoryRateLimitStore) Count() int {
	return s.cache.ItemCount()
}

// RedisRateLimitStore shares counters between instances. Calls go through a
// circuit breaker so an unreachable Redis fails fast.
type RedisRateLimitStore struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker[redisDecision]
}

type redisDecision struct {
	count int
	ttl   time.Duration
}

const redisBreakerFailures = 5

func NewRedisRateLimitStore(client *redis.Client, logger *zap.Logger) *RedisRateLimitStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	breaker := gobreaker.NewCircuitBreaker[redisDecision](gobreaker.Settings{
		Name:        "redis-rate-limit",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= redisBreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &RedisRateLimitStore{client: client, breaker: breaker}
}

// NewRedisClient builds a client from cfg and checks the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return client, nil
}

func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, time.Time, error) {
	decision, err := s.breaker.Execute(func() (redisDecision, error) {
		var incr *redis.IntCmd
		var ttl *redis.DurationCmd

		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, window)
			ttl = pipe.PTTL(ctx, key)
			return nil
		})
		if err != nil {
			return redisDecision{}, err
		}

		return redisDecision{count: int(incr.Val()), ttl: ttl.Val()}, nil
	})
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limit %s: %w", key, err)
	}

	resetTime := time.Now().Add(window)

	if decision.ttl > 0 {
		resetTime = time.Now().Add(decision.ttl)
	}

	if decision.count > limit {
		return false, 0, resetTime, nil
	}

	return true, limit - decision.count, resetTime, nil
}

func (s *RedisRateLimitStore) Count() int {
	n, err := s.client.DBSize(context.Background()).Result()
	if err != nil {
		return 0
	}

	return int(n)
}
