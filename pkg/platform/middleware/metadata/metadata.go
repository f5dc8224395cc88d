package metadata

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"smileid/pkg/requestcontext"
)

// ClientMetadata extracts the client IP address and User-Agent from the
// request and adds them, with the parsed client name and version, to the
// context. Apply it early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), ua, ParseClient(ua))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParseClient identifies the calling SDK or browser from a User-Agent.
// SDK agents look like "smileid-go/2.0.0".
func ParseClient(ua string) requestcontext.Client {
	if strings.TrimSpace(ua) == "" {
		return requestcontext.Client{Name: "unknown"}
	}
	parsed := useragent.New(ua)
	name, version := parsed.Browser()
	if name == "" {
		name, version = parsed.Engine()
	}
	if name == "" {
		return requestcontext.Client{Name: "unknown"}
	}
	return requestcontext.Client{Name: name, Version: version}
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" or "[::1]:port"
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}

	return "unknown"
}
