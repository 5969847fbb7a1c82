package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nrodcast/account-service/internal/infra/logger"
)

// RequestIDHeader carries the correlation identifier between services.
const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with a correlation identifier. A well-formed
// inbound header is honoured so the identifier survives proxy hops; anything
// else is replaced with a fresh UUID before it reaches the logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Writer.Header().Set(RequestIDHeader, id)
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), logger.RequestIDKey{}, id),
		)

		c.Next()
	}
}
