package id

import "context"

type contextKey string

const (
	sessionKey contextKey = "toolchat_session_id"
	requestKey contextKey = "toolchat_request_id"
)

// WithSessionID stores the session identifier on the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, sessionID)
}

// SessionIDFromContext returns the session identifier, or "".
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionKey).(string); ok {
		return v
	}
	return ""
}

// WithRequestID stores the per-round request identifier on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestKey, requestID)
}

// RequestIDFromContext returns the request identifier, or "".
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestKey).(string); ok {
		return v
	}
	return ""
}
