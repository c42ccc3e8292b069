package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request identifier between Shiplog, its
	// proxies, and its clients.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key the identifier is stored under for
	// the logging middleware and handlers.
	RequestIDKey = "request_id"

	// maxRequestIDLength bounds inbound identifiers; anything longer gets
	// replaced instead of being copied into every log line for the request.
	maxRequestIDLength = 128
)

// RequestIDMiddleware assigns each request an identifier for log correlation.
// An inbound X-Request-ID from an upstream proxy or gateway is kept so a trace
// spans hops; absent or oversized values are replaced with a fresh UUID. The
// identifier is stored on the context under RequestIDKey and echoed in the
// response header.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}
