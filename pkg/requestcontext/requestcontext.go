// Package requestcontext carries per-request values (request ID, client
// metadata, the verified caller) through context.Context.
package requestcontext

import (
	"context"
)

type contextKey string

const (
	keyRequestID contextKey = "request_id"
	keyClientIP  contextKey = "client_ip"
	keyUserAgent contextKey = "user_agent"
	keyClient    contextKey = "client_name"
	keyCaller    contextKey = "caller"
)

// Caller is the verified identity of the request, reduced to what handlers
// and logs need.
type Caller struct {
	TokenID string
	OwnerID string
	Scopes  []string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(keyRequestID).(string)
	return v
}

// WithClientMetadata stores the resolved client IP, raw User-Agent and a
// short client label derived from it.
func WithClientMetadata(ctx context.Context, clientIP, userAgent, clientName string) context.Context {
	ctx = context.WithValue(ctx, keyClientIP, clientIP)
	ctx = context.WithValue(ctx, keyUserAgent, userAgent)
	return context.WithValue(ctx, keyClient, clientName)
}

func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(keyClientIP).(string)
	return v
}

func UserAgent(ctx context.Context) string {
	v, _ := ctx.Value(keyUserAgent).(string)
	return v
}

func ClientName(ctx context.Context) string {
	v, _ := ctx.Value(keyClient).(string)
	return v
}

func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, keyCaller, caller)
}

// CallerFrom returns the verified caller and whether one was set.
func CallerFrom(ctx context.Context) (Caller, bool) {
	v, ok := ctx.Value(keyCaller).(Caller)
	return v, ok
}
