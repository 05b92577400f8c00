package ctxutil

import "context"

type traceDataKey struct{}

// TraceData is the per-request identity carried through handlers, services and chain runs.
type TraceData struct {
	TraceID   string
	RequestID string
	UserID    string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}

// UserID returns the authenticated user id, or "".
func UserID(ctx context.Context) string {
	if td := GetTraceData(ctx); td != nil {
		return td.UserID
	}
	return ""
}
