package config

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"todoitems/internal/core/model/response"
	"todoitems/internal/core/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var testRateLimitConfig = RateLimitConfig{Enabled: true, Store: StoreMemory, Requests: 60, Window: time.Minute}

func newTestLimiter() (*RateLimiter, *telemetry.AppMetrics, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	metrics := telemetry.NewAppMetrics(registry)

	return NewRateLimiter(testRateLimitConfig, NewMemoryRateLimitStore(), zap.NewNop(), metrics), metrics, registry
}

func newLimitedRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rl.RateLimitMiddleware())

	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	router.GET("/test", ok)
	router.GET("/items", ok)
	router.POST("/items", ok)
	router.PUT("/items/:id", ok)
	router.DELETE("/items/:id", ok)

	return router
}

func perform(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, strings.NewReader(`{"name":"x","completed":false}`))
	router.ServeHTTP(w, req)
	return w
}

func TestNewRateLimiter(t *testing.T) {
	RegisterTestingT(t)
	rl, _, _ := newTestLimiter()

	Expect(rl).ToNot(BeNil())
	Expect(rl.store).ToNot(BeNil())
	Expect(rl.config).To(HaveKey("POST /items"))
	Expect(rl.config[defaultRateLimitKey].Requests).To(Equal(60))
}

func TestNewRateLimiter_DefaultsStore(t *testing.T) {
	RegisterTestingT(t)
	rl := NewRateLimiter(testRateLimitConfig, nil, nil, nil)

	Expect(rl.store).To(BeAssignableToTypeOf(&MemoryRateLimitStore{}))
	Expect(perform(newLimitedRouter(rl), "GET", "/test").Code).To(Equal(http.StatusOK))
}

func TestRateLimitMiddleware_AllowedRequests(t *testing.T) {
	RegisterTestingT(t)
	rl, _, _ := newTestLimiter()
	router := newLimitedRouter(rl)

	for i := 0; i < 5; i++ {
		w := perform(router, "GET", "/test")

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("X-RateLimit-Limit")).To(Equal("60"))
		Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal(strconv.Itoa(59 - i)))
		Expect(w.Header().Get("X-RateLimit-Reset")).ToNot(BeEmpty())
	}
}

func TestRateLimitMiddleware_ExceedLimit(t *testing.T) {
	RegisterTestingT(t)
	rl, _, registry := newTestLimiter()
	router := newLimitedRouter(rl)

	for i := 0; i < 65; i++ {
		w := perform(router, "GET", "/test")

		if i < 60 {
			Expect(w.Code).To(Equal(http.StatusOK))
			continue
		}

		Expect(w.Code).To(Equal(http.StatusTooManyRequests))
		Expect(w.Header().Get("Retry-After")).ToNot(BeEmpty())

		var body response.ErrorResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Status).To(Equal(http.StatusTooManyRequests))
		Expect(body.ErrorMessage).To(ContainSubstring("Limit: 60"))
	}

	count, err := testutil.GatherAndCount(registry, "rate_limit_hits_total")
	Expect(err).To(BeNil())
	Expect(count).To(Equal(1))
}

func TestRateLimitMiddleware_LogsStatsWhenExceeded(t *testing.T) {
	RegisterTestingT(t)

	core, logs := observer.New(zapcore.WarnLevel)
	rl := NewRateLimiter(testRateLimitConfig, NewMemoryRateLimitStore(), zap.New(core), nil)
	router := newLimitedRouter(rl)

	for i := 0; i < 11; i++ {
		perform(router, "DELETE", "/items/1")
	}

	entries := logs.FilterMessage("Rate limit exceeded").All()
	Expect(entries).To(HaveLen(1))

	stats, ok := entries[0].ContextMap()["stats"].(map[string]any)
	Expect(ok).To(BeTrue())
	Expect(stats).To(HaveKeyWithValue("active_entries", 1))
	Expect(stats).To(HaveKeyWithValue("configs", 6))
}

func TestRateLimitMiddleware_PerRouteBudgets(t *testing.T) {
	RegisterTestingT(t)

	cases := []struct {
		method string
		path   string
		limit  int
	}{
		{"GET", "/items", 100},
		{"POST", "/items", 20},
		{"PUT", "/items/1", 20},
		{"DELETE", "/items/1", 10},
	}

	for _, tc := range cases {
		rl, _, _ := newTestLimiter()
		router := newLimitedRouter(rl)

		for i := 1; i <= 5; i++ {
			w := perform(router, tc.method, tc.path)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("X-RateLimit-Limit")).To(Equal(strconv.Itoa(tc.limit)))
			Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal(strconv.Itoa(tc.limit-i)),
				"%s %s request %d", tc.method, tc.path, i)
		}
	}
}

func TestRateLimitMiddleware_RoutesShareIDTemplate(t *testing.T) {
	RegisterTestingT(t)
	rl, _, _ := newTestLimiter()
	router := newLimitedRouter(rl)

	perform(router, "DELETE", "/items/1")
	w := perform(router, "DELETE", "/items/2")

	Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal("8"))
}

func TestRateLimitMiddleware_WindowReset(t *testing.T) {
	RegisterTestingT(t)
	rl, _, _ := newTestLimiter()
	rl.SetConfig("GET /test", RateLimitEndpointConfig{Requests: 2, Window: 50 * time.Millisecond})
	router := newLimitedRouter(rl)

	Expect(perform(router, "GET", "/test").Code).To(Equal(http.StatusOK))
	Expect(perform(router, "GET", "/test").Code).To(Equal(http.StatusOK))
	Expect(perform(router, "GET", "/test").Code).To(Equal(http.StatusTooManyRequests))

	time.Sleep(100 * time.Millisecond)

	w := perform(router, "GET", "/test")
	Expect(w.Code).To(Equal(http.StatusOK))
	Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal("1"))
}

func TestRateLimiterGetStats(t *testing.T) {
	RegisterTestingT(t)
	rl, _, _ := newTestLimiter()
	router := newLimitedRouter(rl)

	perform(router, "GET", "/items")
	perform(router, "POST", "/items")

	stats := rl.GetStats()
	Expect(stats["active_entries"]).To(Equal(2))
	Expect(stats["configs"]).To(Equal(6))
}

func TestRateLimiterSetConfig(t *testing.T) {
	RegisterTestingT(t)
	rl, _, _ := newTestLimiter()

	rl.SetConfig("GET /custom", RateLimitEndpointConfig{Requests: 5, Window: time.Minute})

	Expect(rl.config["GET /custom"].Requests).To(Equal(5))
	Expect(rl.config["GET /custom"].Window).To(Equal(time.Minute))
	Expect(rl.config["GET /custom"].KeyFunc).ToNot(BeNil())
}

func TestRateLimitMiddleware_NoDoubleCounting(t *testing.T) {
	RegisterTestingT(t)
	rl, _, _ := newTestLimiter()
	router := newLimitedRouter(rl)

	numRequests := 10
	results := make([]int, numRequests)
	var wg sync.WaitGroup

	for i := 0; i < numRequests; i++ {
		wg.Add(1)

		go func(index int) {
			defer wg.Done()

			w := perform(router, "POST", "/items")
			remaining, _ := strconv.Atoi(w.Header().Get("X-RateLimit-Remaining"))
			results[index] = remaining
		}(i)
	}

	wg.Wait()

	expectedRemaining := []int{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}
	sort.Ints(results)

	Expect(results).To(Equal(expectedRemaining),
		"Concurrent requests should have correct remaining counts without double counting: %v", results)
}

func TestRedisRateLimitStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	RegisterTestingT(t)
	ctx := context.Background()

	client, err := NewRedisClient(ctx, RedisConfig{Addr: addr})
	Expect(err).To(BeNil())
	defer client.Close()

	store := NewRedisRateLimitStore(client, zap.NewNop())
	key := "rate_limit:test:" + uuid.NewString()
	defer client.Del(ctx, key)

	for i := 1; i <= 3; i++ {
		allowed, remaining, resetTime, err := store.Allow(ctx, key, 3, time.Minute)

		Expect(err).To(BeNil())
		Expect(allowed).To(BeTrue())
		Expect(remaining).To(Equal(3 - i))
		Expect(resetTime).To(BeTemporally(">", time.Now()))
	}

	allowed, remaining, _, err := store.Allow(ctx, key, 3, time.Minute)
	Expect(err).To(BeNil())
	Expect(allowed).To(BeFalse())
	Expect(remaining).To(Equal(0))
	Expect(store.Count()).To(BeNumerically(">=", 1))
}

func TestRedisRateLimitStore_BreakerOpensOnFailures(t *testing.T) {
	RegisterTestingT(t)
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	defer client.Close()

	store := NewRedisRateLimitStore(client, zap.NewNop())

	for i := 0; i < redisBreakerFailures; i++ {
		_, _, _, err := store.Allow(ctx, "rate_limit:down", 3, time.Minute)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, gobreaker.ErrOpenState)).To(BeFalse())
	}

	_, _, _, err := store.Allow(ctx, "rate_limit:down", 3, time.Minute)
	Expect(errors.Is(err, gobreaker.ErrOpenState)).To(BeTrue())
}
