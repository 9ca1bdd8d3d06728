package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Budget is the request allowance for one route scope per client.
type Budget struct {
	Limit  int
	Window time.Duration
}

// Route budgets. Charge creation hits paid gateway APIs, so it gets a far
// tighter allowance than catalog reads; login is throttled against
// credential stuffing. Webhooks carry no budget at all, a provider that
// sees 429s may disable the postback.
var (
	PublicBudget = Budget{Limit: 100, Window: time.Minute}
	ChargeBudget = Budget{Limit: 10, Window: time.Minute}
	LoginBudget  = Budget{Limit: 5, Window: time.Minute}
)

// RateLimiter tracks request timestamps per scoped key in memory. Scopes
// keep the checkout and admin allowances independent for the same IP.
type RateLimiter struct {
	mu        sync.Mutex
	seen      map[string][]time.Time
	maxWindow time.Duration
}

func NewRateLimiter() *RateLimiter {
	r := &RateLimiter{
		seen:      make(map[string][]time.Time),
		maxWindow: time.Minute,
	}
	go r.cleanup()
	return r
}

// Allow records the request and reports whether it fits the budget.
func (r *RateLimiter) Allow(key string, b Budget) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.Window > r.maxWindow {
		r.maxWindow = b.Window
	}
	now := time.Now()
	cutoff := now.Add(-b.Window)
	var valid []time.Time
	for _, t := range r.seen[key] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) >= b.Limit {
		r.seen[key] = valid
		return false
	}
	r.seen[key] = append(valid, now)
	return true
}

func (r *RateLimiter) cleanup() {
	tick := time.NewTicker(time.Minute)
	for range tick.C {
		r.mu.Lock()
		cutoff := time.Now().Add(-r.maxWindow)
		for k, times := range r.seen {
			var valid []time.Time
			for _, t := range times {
				if t.After(cutoff) {
					valid = append(valid, t)
				}
			}
			if len(valid) == 0 {
				delete(r.seen, k)
			} else {
				r.seen[k] = valid
			}
		}
		r.mu.Unlock()
	}
}

// Limit enforces a budget for one route scope, keyed by client IP.
func (r *RateLimiter) Limit(scope string, b Budget) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Allow(scope+":"+c.ClientIP(), b) {
			c.Header("Retry-After", strconv.Itoa(int(b.Window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
