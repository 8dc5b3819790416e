package idempotency

import (
	"context"
	"net/http"
	"time"

	"fulfillment/internal/model"
	"fulfillment/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const HeaderKey = "Idempotency-Key"

// Middleware rejects a replayed Idempotency-Key with 409. Requests without the
// header pass through untouched. Keys are scoped by method and route. A key
// whose request ended in a 4xx or 5xx is released so the client can retry.
func Middleware(store Store, ttl time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderKey)
		if key == "" {
			c.Next()
			return
		}

		scoped := c.Request.Method + " " + c.FullPath() + " " + key
		fresh, err := store.MarkProcessed(c.Request.Context(), scoped, ttl)
		if err != nil {
			log.Warn("idempotency store unavailable", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				response.Error(http.StatusServiceUnavailable, "Idempotency store unavailable"))
			return
		}
		if !fresh {
			c.AbortWithStatusJSON(http.StatusConflict,
				response.Error(http.StatusConflict, model.ErrDuplicateRequest.Message))
			return
		}
		release := func() {
			if err := store.Release(context.WithoutCancel(c.Request.Context()), scoped); err != nil {
				log.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
			}
		}
		defer func() {
			// recovery runs further out and writes the 500 after we return
			if r := recover(); r != nil {
				release()
				panic(r)
			}
		}()

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			release()
		}
	}
}
