package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader carries the caller-supplied request identifier.
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey is the gin context key the identifier is stored under.
	CorrelationIDKey = "correlation_id"
)

// CorrelationID tags every request with an identifier that follows it
// through the payment pipeline: into log lines, audit records, and the
// receipt published to Kafka. Callers may supply their own; otherwise
// one is minted here. The identifier is echoed back in the response
// header either way.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Header(CorrelationIDHeader, id)
		c.Set(CorrelationIDKey, id)

		c.Next()
	}
}

// GetCorrelationID returns the request's correlation identifier, or the
// empty string outside a correlated request.
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(CorrelationIDKey)
}
