package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"configas/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowEnforcesBudget(t *testing.T) {
	limiter := middleware.NewRateLimiter()
	budget := middleware.Budget{Limit: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("charge:1.2.3.4", budget))
	}
	assert.False(t, limiter.Allow("charge:1.2.3.4", budget))
}

func TestAllowScopesAreIndependent(t *testing.T) {
	limiter := middleware.NewRateLimiter()
	tight := middleware.Budget{Limit: 1, Window: time.Minute}
	loose := middleware.Budget{Limit: 10, Window: time.Minute}

	require.True(t, limiter.Allow("charge:1.2.3.4", tight))
	require.False(t, limiter.Allow("charge:1.2.3.4", tight))

	// Exhausting the charge budget must not touch the public one.
	assert.True(t, limiter.Allow("public:1.2.3.4", loose))
}

func TestAllowWindowExpiry(t *testing.T) {
	limiter := middleware.NewRateLimiter()
	budget := middleware.Budget{Limit: 1, Window: 20 * time.Millisecond}

	require.True(t, limiter.Allow("charge:1.2.3.4", budget))
	require.False(t, limiter.Allow("charge:1.2.3.4", budget))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, limiter.Allow("charge:1.2.3.4", budget))
}

func TestLimitMiddlewareRejectsWithRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := middleware.NewRateLimiter()
	r := gin.New()
	r.GET("/charges", limiter.Limit("charge", middleware.Budget{Limit: 1, Window: time.Minute}), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/charges", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/charges", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
}
