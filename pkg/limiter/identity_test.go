package limiter

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveClientID(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		forwarded  string
		remoteAddr string
		want       ClientID
	}{
		{
			name:       "explicit header wins and is trimmed",
			header:     "  ext-uuid-1 ",
			forwarded:  "203.0.113.7",
			remoteAddr: "10.0.0.1:5555",
			want:       "ext-uuid-1",
		},
		{
			name:       "blank header falls through to forwarded chain",
			header:     "   ",
			forwarded:  "203.0.113.7, 10.0.0.2",
			remoteAddr: "10.0.0.1:5555",
			want:       "203.0.113.7",
		},
		{
			name:       "peer address without port",
			remoteAddr: "192.0.2.10:44321",
			want:       "192.0.2.10",
		},
		{
			name:       "ipv6 peer address",
			remoteAddr: "[2001:db8::1]:8080",
			want:       "2001:db8::1",
		},
		{
			name:       "peer address without port is kept as-is",
			remoteAddr: "unix-socket",
			want:       "unix-socket",
		},
		{
			name: "nothing identifies the caller",
			want: UnknownClient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/score", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.header != "" {
				r.Header.Set(DefaultClientHeader, tt.header)
			}
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, ResolveClientID(r, DefaultClientHeader))
		})
	}
}

func TestResolveClientID_HeaderDisabled(t *testing.T) {
	r := httptest.NewRequest("POST", "/score", nil)
	r.RemoteAddr = "192.0.2.10:1"
	r.Header.Set(DefaultClientHeader, "ext-uuid-1")

	assert.Equal(t, ClientID("192.0.2.10"), ResolveClientID(r, ""))
}
