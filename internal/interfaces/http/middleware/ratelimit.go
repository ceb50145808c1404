package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/sellerdash/backend/internal/infrastructure/auth"
	"github.com/sellerdash/backend/internal/interfaces/http/dto"
)

// RateLimiter hands out a token bucket per client key
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	every   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows burst requests per client, refilled at perMinute per
// minute. A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	every := rate.Inf
	if perMinute > 0 {
		every = rate.Limit(float64(perMinute) / 60)
	}
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		every:   every,
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

// Allow reports whether key may make a request now
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.clients[key]
	if !ok {
		rl.evictIdle(now)
		c = &clientLimiter{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// evictIdle drops clients not seen for idleTTL. Called with mu held.
func (rl *RateLimiter) evictIdle(now time.Time) {
	for key, c := range rl.clients {
		if now.Sub(c.lastSeen) > rl.idleTTL {
			delete(rl.clients, key)
		}
	}
}

// RetryAfter is the wait before a throttled client gets a new token
func (rl *RateLimiter) RetryAfter() time.Duration {
	if rl.every == rate.Inf || rl.every <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(rl.every))
}

// RateLimit throttles requests per token subject, or per client IP for
// anonymous callers. Place it after RequireToken.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if v, ok := c.Get(TokenClaimsKey); ok {
			if claims, ok := v.(*auth.Claims); ok && claims.Subject != "" {
				key = "sub:" + claims.Subject
			}
		}

		if !limiter.Allow(key) {
			if wait := limiter.RetryAfter(); wait > 0 {
				c.Header("Retry-After", strconv.Itoa(int(wait.Seconds()+0.5)))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests, try again later",
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}
