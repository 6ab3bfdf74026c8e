package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/praxisnote/praxisnote/internal/cache"
	"github.com/praxisnote/praxisnote/internal/metrics"
	"github.com/praxisnote/praxisnote/internal/pkg/errcode"
	"github.com/praxisnote/praxisnote/internal/pkg/response"
)

// WorkspaceHeader carries the tenant id set by the gateway in front of this
// service. Requests without it are limited per client IP.
const WorkspaceHeader = "X-Workspace-ID"

type rateLimiter struct {
	store     cache.Store
	perMinute int64
	window    time.Duration
}

// RateLimit enforces a fixed-window per-tenant limit before the agent does
// any remote work. A nil store or non-positive limit disables it.
func RateLimit(store cache.Store, perMinute int) gin.HandlerFunc {
	limiter := &rateLimiter{
		store:     store,
		perMinute: int64(perMinute),
		window:    time.Minute,
	}
	return limiter.handle
}

func (l *rateLimiter) handle(c *gin.Context) {
	if l.store == nil || l.perMinute <= 0 {
		c.Next()
		return
	}
	tenant := c.GetHeader(WorkspaceHeader)
	if tenant == "" {
		tenant = c.ClientIP()
	}
	count, err := l.store.Incr(c.Request.Context(), "ratelimit:"+tenant, l.window)
	if err != nil {
		// The cache store being down must not take queries down with it.
		logutil.GetLogger(c.Request.Context()).Warn("rate limit store error", zap.Error(err))
		c.Next()
		return
	}
	if count > l.perMinute {
		metrics.RateLimitRejections.Inc()
		logutil.GetLogger(c.Request.Context()).Warn("rate limit hit",
			zap.String("tenant", tenant),
			zap.Int64("count", count),
		)
		response.ErrorCode(c, errcode.ErrTooMany)
		c.Abort()
		return
	}
	c.Next()
}
