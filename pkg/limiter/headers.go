package limiter

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	HeaderPolicy          = "X-RateLimit-Policy"
	HeaderLimitMinute     = "X-RateLimit-Limit-Minute"
	HeaderRemainingMinute = "X-RateLimit-Remaining-Minute"
	HeaderResetMinute     = "X-RateLimit-Reset-Minute"
	HeaderLimit           = "X-RateLimit-Limit"
	HeaderRemaining       = "X-RateLimit-Remaining"
	HeaderReset           = "X-RateLimit-Reset"
	HeaderRetryAfter      = "Retry-After"
)

// WriteHeaders sets the advisory rate-limit headers on h, plus Retry-After
// when the request is denied. Nothing is written for fail-open decisions.
func (d Decision) WriteHeaders(h http.Header) {
	if d.FailOpen {
		return
	}

	nowSec := ceilSeconds(d.Now)
	h.Set(HeaderPolicy, fmt.Sprintf("window=%d; limit=%d, window=%d; limit=%d",
		int64(MinuteWindow.Duration/time.Second), d.Minute.Limit,
		int64(DayWindow.Duration/time.Second), d.Day.Limit))

	h.Set(HeaderLimitMinute, strconv.FormatInt(d.Minute.Limit, 10))
	h.Set(HeaderRemainingMinute, strconv.FormatInt(d.Minute.Remaining, 10))
	h.Set(HeaderResetMinute, strconv.FormatInt(nowSec+int64(d.Minute.ResetAfter/time.Second), 10))

	h.Set(HeaderLimit, strconv.FormatInt(d.Day.Limit, 10))
	h.Set(HeaderRemaining, strconv.FormatInt(d.Day.Remaining, 10))
	h.Set(HeaderReset, strconv.FormatInt(nowSec+int64(d.Day.ResetAfter/time.Second), 10))

	if !d.Allow {
		h.Set(HeaderRetryAfter, strconv.FormatInt(d.RetryAfterSeconds(), 10))
	}
}

// ceilSeconds is t as Unix seconds, rounded up.
func ceilSeconds(t time.Time) int64 {
	ms := t.UnixMilli()
	return (ms + 999) / 1000
}
