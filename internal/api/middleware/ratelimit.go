package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/logger"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/ratelimit"
)

// RedisRateLimitConfig Redis 기반 Rate Limit 설정
type RedisRateLimitConfig struct {
	Limiter *ratelimit.RedisRateLimiter // Redis Rate Limiter
	Scope   string                      // 키 접두어 (엔드포인트 그룹)
	Limit   int                         // 윈도우 내 최대 요청 수
	Window  time.Duration               // 윈도우 크기
	KeyFunc func(*gin.Context) string   // 키 추출 함수
}

// DefaultKeyFunc uses player ID if authenticated, otherwise IP address
func DefaultKeyFunc(c *gin.Context) string {
	if pid := c.GetString("playerId"); pid != "" {
		return fmt.Sprintf("player:%s", pid)
	}
	return fmt.Sprintf("ip:%s", c.ClientIP())
}

// PlayerKeyFunc uses only player ID (requires authentication)
func PlayerKeyFunc(c *gin.Context) string {
	if pid := c.GetString("playerId"); pid != "" {
		return fmt.Sprintf("player:%s", pid)
	}
	return ""
}

// RedisRateLimitMiddleware Redis 기반 분산 Rate Limiting 미들웨어
func RedisRateLimitMiddleware(config RedisRateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = DefaultKeyFunc
	}
	if config.Limit <= 0 {
		config.Limit = 60
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}

	return func(c *gin.Context) {
		key := config.KeyFunc(c)
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required for rate limiting",
			})
			c.Abort()
			return
		}
		if config.Scope != "" {
			key = config.Scope + ":" + key
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		allowed, info, err := config.Limiter.AllowWithInfo(ctx, key, config.Limit, config.Window)
		if err != nil {
			// Redis 오류 시 로깅하고 요청 허용 (Fail-open)
			logger.Warn("Rate limit check failed", "key", key, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(info.ResetTime).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"message":     fmt.Sprintf("Too many requests. Limit: %d per %v", config.Limit, config.Window),
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RedisBattleActionRateLimit 전투 행동 제출 제한
func RedisBattleActionRateLimit(limiter *ratelimit.RedisRateLimiter, limit int, window time.Duration) gin.HandlerFunc {
	return RedisRateLimitMiddleware(RedisRateLimitConfig{
		Limiter: limiter,
		Scope:   "action",
		Limit:   limit,
		Window:  window,
		KeyFunc: PlayerKeyFunc,
	})
}

// RedisQueueRateLimit 대기열 참가/이탈 제한
func RedisQueueRateLimit(limiter *ratelimit.RedisRateLimiter, limit int, window time.Duration) gin.HandlerFunc {
	return RedisRateLimitMiddleware(RedisRateLimitConfig{
		Limiter: limiter,
		Scope:   "queue",
		Limit:   limit,
		Window:  window,
		KeyFunc: PlayerKeyFunc,
	})
}
