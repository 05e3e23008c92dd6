package middlewares

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/transdispo/crates_backend/utils"
)

// RequestContextMiddleware copies the already-authorized caller identity
// and the correlation id from headers into the request context. The
// gateway in front of this service owns authentication; by the time a
// request lands here the headers are trusted.
func RequestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if v := c.GetHeader("X-User-Id"); v != "" {
			if userId, err := strconv.Atoi(v); err == nil {
				ctx = utils.SetUserIdInContext(ctx, userId)
			}
		}
		if v := c.GetHeader("X-User-Name"); v != "" {
			ctx = utils.SetUserNameInContext(ctx, v)
		}

		cid := c.GetHeader("X-Correlation-Id")
		if cid == "" {
			cid = uuid.NewString()
		}
		ctx = utils.SetCorrelationIdInContext(ctx, cid)
		c.Header("X-Correlation-Id", cid)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
