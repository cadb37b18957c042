// Package identity derives a best-effort caller identifier from proxy headers.
//
// The identifier is not authenticated. Whatever the nearest proxy reports is
// trusted as-is, and no IP syntax validation takes place.
package identity

import (
	"net/http"
	"strings"
)

// Unknown is returned when no proxy header carries a client address.
const Unknown = "unknown"

// Header names consulted by Resolve, in preference order.
const (
	HeaderForwardedFor   = "X-Forwarded-For"
	HeaderRealIP         = "X-Real-IP"
	HeaderCFConnectingIP = "CF-Connecting-IP"
)

// Resolve returns the client identifier for a request's headers.
//
// X-Forwarded-For wins when present (first hop only), then X-Real-IP, then
// CF-Connecting-IP. Falls back to Unknown.
func Resolve(h http.Header) string {
	if h == nil {
		return Unknown
	}

	if forwarded := h.Get(HeaderForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(h.Get(HeaderRealIP)); realIP != "" {
		return realIP
	}

	if cfIP := strings.TrimSpace(h.Get(HeaderCFConnectingIP)); cfIP != "" {
		return cfIP
	}

	return Unknown
}

// FromRequest is a convenience wrapper around Resolve.
func FromRequest(r *http.Request) string {
	if r == nil {
		return Unknown
	}
	return Resolve(r.Header)
}
