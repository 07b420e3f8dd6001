package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

/*
 * RateLimiter 按 key（通常为客户端 IP）划分的令牌桶限流器
 * 功能：每个 key 一个 rate.Limiter，后台定期清理长时间未访问的 key
 */
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

/* RateLimitResult 单次检查结果 */
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

/*
 * NewRateLimiter 创建限流器实例
 * @param perSec - 每秒补充的令牌数
 * @param burst  - 突发容量
 */
func NewRateLimiter(perSec float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(perSec),
		burst:    burst,
		idle:     5 * time.Minute,
		stop:     make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

/* Stop 停止后台清理，可重复调用 */
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.idle)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.cleanup(time.Now())
		}
	}
}

func (rl *RateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, v := range rl.visitors {
		if now.Sub(v.lastAccess) > rl.idle {
			delete(rl.visitors, key)
		}
	}
}

func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastAccess = now
	return v.limiter
}

/* Check 消耗一个令牌并返回详情 */
func (rl *RateLimiter) Check(key string) RateLimitResult {
	now := time.Now()
	lim := rl.limiterFor(key, now)
	res := RateLimitResult{Limit: rl.burst}

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return res
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		res.RetryAfter = delay
		return res
	}
	res.Allowed = true
	res.Remaining = int(math.Max(0, math.Floor(lim.TokensAt(now))))
	return res
}

/* Allow 是否放行 */
func (rl *RateLimiter) Allow(key string) bool {
	return rl.Check(key).Allowed
}

/*
 * TokenRateLimit 令牌端点限流中间件（按客户端 IP）
 * 超限返回 429，错误体为 OAuth 形状，附 Retry-After
 */
func TokenRateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := rl.Check(c.ClientIP())
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":             "slow_down",
				"error_description": "too many token requests, retry later",
			})
			return
		}
		c.Next()
	}
}

/* RateLimit 管理 API 限流中间件（统一响应格式） */
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "TOO_MANY_REQUESTS",
					"message": "Rate limit exceeded. Please try again later.",
				},
			})
			return
		}
		c.Next()
	}
}
