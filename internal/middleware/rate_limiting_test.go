package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-redis/redis_rate/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jhkim-dev/speakpath/internal/telemetry/metrics"
)

type testRequestRateLimiter struct {
	// Limits holds the remaining allowance per limiter key
	Limits map[string]int
}

func (rl *testRequestRateLimiter) Allow(
	_ context.Context,
	key string,
	_ redis_rate.Limit,
) (*redis_rate.Result, error) {
	remaining := rl.Limits[key]
	if remaining > 0 {
		rl.Limits[key] = remaining - 1
	}
	return &redis_rate.Result{Allowed: remaining}, nil
}

func TestRateLimit(t *testing.T) {
	metricsManager := metrics.NewTestManager()
	rateLimiter := &testRequestRateLimiter{
		Limits: map[string]int{"generate": 2},
	}

	called := 0
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called++
	})
	handler := RateLimit(rateLimiter, metricsManager, "generate", 2)(next)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("POST", "/api/generate-all", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
	assert.Equal(t, 2, called)

	// allowance exhausted
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/api/generate-all", nil))
	assert.Equal(t, http.StatusTooEarly, rr.Code)
	assert.Equal(t, 2, called)
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterRateLimitedRequests))
}
