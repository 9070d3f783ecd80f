package limiter

import (
	"net"
	"net/http"
	"strings"
)

// DefaultClientHeader carries an explicit client token set by the extension.
const DefaultClientHeader = "X-Cringe-Client"

// ResolveClientID derives the quota key for r. Precedence: the explicit
// client header, the first X-Forwarded-For entry, the peer address, then
// UnknownClient. Forwarded values are trusted as-is.
func ResolveClientID(r *http.Request, header string) ClientID {
	if header != "" {
		if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
			return ClientID(v)
		}
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if v := strings.TrimSpace(first); v != "" {
			return ClientID(v)
		}
	}

	if addr := strings.TrimSpace(r.RemoteAddr); addr != "" {
		// The port changes per connection and must not split a client's quota.
		if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
			return ClientID(host)
		}
		return ClientID(addr)
	}

	return UnknownClient
}
