package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowsmith/flowsmith-backend/internal/platform/ctxutil"
)

const requestIDHeader = "X-Request-ID"

// RequestTrace assigns every request an ID, reusing the caller's
// X-Request-ID when present, and stores it with the active trace ID so
// downstream code can stamp logs and error responses.
func RequestTrace() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		td := &ctxutil.TraceData{RequestID: requestID}
		if span := trace.SpanContextFromContext(c.Request.Context()); span.HasTraceID() {
			td.TraceID = span.TraceID().String()
		}

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}
