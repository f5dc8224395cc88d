// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values set by middleware and read by handlers.
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	now := requestcontext.Now(ctx)
package requestcontext

import (
	"context"
	"time"

	"smileid/pkg/domain"
)

type (
	apiVersionKey  struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	clientKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Client is the parsed identity of the calling SDK or browser.
type Client struct {
	Name    string
	Version string
}

// APIVersion returns the API version of the matched route.
func APIVersion(ctx context.Context) domain.APIVersion {
	if v, ok := ctx.Value(apiVersionKey{}).(domain.APIVersion); ok {
		return v
	}
	return domain.APIVersionUnversioned
}

// WithAPIVersion injects the route API version.
func WithAPIVersion(ctx context.Context, v domain.APIVersion) context.Context {
	return context.WithValue(ctx, apiVersionKey{}, v)
}

// ClientIP returns the caller's IP address.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// UserAgent returns the raw User-Agent header.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// CallingClient returns the parsed User-Agent.
func CallingClient(ctx context.Context) Client {
	if c, ok := ctx.Value(clientKey{}).(Client); ok {
		return c
	}
	return Client{}
}

// WithClientMetadata injects caller metadata.
// Useful for handler tests that don't run the full middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string, client Client) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	ctx = context.WithValue(ctx, userAgentKey{}, userAgent)
	return context.WithValue(ctx, clientKey{}, client)
}

// RequestID returns the request correlation id.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a request correlation id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request-scoped time, or time.Now when none was set.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a request-scoped time.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
