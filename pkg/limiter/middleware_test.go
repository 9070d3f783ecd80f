package limiter

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_EndToEnd(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, Limits{Minute: 2, Daily: 100}, clock)

	calls := 0
	h := Middleware(l, MiddlewareConfig{Logger: zerolog.Nop()})(okHandler(&calls))

	send := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/score", nil)
		r.Header.Set(DefaultClientHeader, "A")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		clock.Advance(300 * time.Millisecond)
		return w
	}

	w1 := send()
	assert.Equal(t, http.StatusOK, w1.Code)
	assert.Equal(t, "1", w1.Header().Get(HeaderRemainingMinute))
	assert.Equal(t, "99", w1.Header().Get(HeaderRemaining))

	w2 := send()
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, "0", w2.Header().Get(HeaderRemainingMinute))

	w3 := send()
	assert.Equal(t, http.StatusTooManyRequests, w3.Code)
	assert.Equal(t, "0", w3.Header().Get(HeaderRemainingMinute))
	assert.Equal(t, "60", w3.Header().Get(HeaderRetryAfter))
	assert.Equal(t, "application/json", w3.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(w3.Body).Decode(&body))
	assert.Equal(t, ReasonMinute, body["error"])

	assert.Equal(t, 2, calls, "denied request must not reach the upstream handler")
}

func TestMiddleware_CustomHeader(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, Limits{Minute: 1, Daily: 100}, clock)

	calls := 0
	h := Middleware(l, MiddlewareConfig{ClientHeader: "X-Client"})(okHandler(&calls))

	for _, id := range []string{"one", "two"} {
		r := httptest.NewRequest(http.MethodPost, "/score", nil)
		r.Header.Set("X-Client", id)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestMiddleware_FailOpen(t *testing.T) {
	l, err := New(&failingStore{err: ErrStoreUnavailable}, Limits{Minute: 1, Daily: 1})
	require.NoError(t, err)

	calls := 0
	h := Middleware(l, MiddlewareConfig{})(okHandler(&calls))

	for range 3 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/score", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get(HeaderLimitMinute))
	}
	assert.Equal(t, 3, calls)
}

func TestMiddleware_UnclassifiedErrorStillServes(t *testing.T) {
	l, err := New(&failingStore{err: errors.New("boom")}, Limits{Minute: 1, Daily: 1})
	require.NoError(t, err)

	calls := 0
	h := Middleware(l, MiddlewareConfig{})(okHandler(&calls))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/score", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, calls)
}
