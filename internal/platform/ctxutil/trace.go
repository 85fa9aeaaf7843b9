// Package ctxutil moves request-scoped identifiers through
// context.Context under unexported keys.
package ctxutil

import "context"

type traceDataKey struct{}

// TraceData pairs the OTel trace ID with the request ID the middleware
// assigned. Error envelopes echo the request ID so a client report can
// be matched to logs.
type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

// GetTraceData returns nil when no middleware populated the context.
func GetTraceData(ctx context.Context) *TraceData {
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}
