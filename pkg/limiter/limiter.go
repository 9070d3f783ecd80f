package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Denial reasons, rendered verbatim in 429 bodies.
const (
	ReasonMinute = "Too many requests (per-minute limit)"
	ReasonDaily  = "Daily limit exceeded"
)

// Verdict is the outcome for one window.
type Verdict struct {
	Window     Window
	Allowed    bool
	Count      int64
	Limit      int64
	Remaining  int64
	ResetAfter time.Duration
}

// Decision is the combined outcome for both windows.
type Decision struct {
	Allow  bool
	Reason string
	Minute Verdict
	Day    Verdict
	// RetryAfter is zero when allowed; when denied it is the TTL of the
	// window that caused the denial.
	RetryAfter time.Duration
	// FailOpen is set when the store could not be consulted and the request
	// was let through without a verdict. Minute and Day are zero then.
	FailOpen bool
	// Now is the instant the event was recorded at.
	Now time.Time
}

// RetryAfterSeconds is RetryAfter rounded up to whole seconds, never below 1.
func (d Decision) RetryAfterSeconds() int64 {
	secs := int64((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Evaluate turns the usage reported by a store into a Decision. Counts
// include the current event, so a window allows up to and including its
// limit. The minute window is checked first and wins when both are exceeded.
func Evaluate(u Usage, limits Limits, now time.Time) Decision {
	d := Decision{
		Allow:  true,
		Minute: verdict(MinuteWindow, u.MinuteCount, limits.Minute, u.MinuteTTL),
		Day:    verdict(DayWindow, u.DayCount, limits.Daily, u.DayTTL),
		Now:    now,
	}

	switch {
	case !d.Minute.Allowed:
		d.Allow = false
		d.Reason = ReasonMinute
		d.RetryAfter = u.MinuteTTL
	case !d.Day.Allowed:
		d.Allow = false
		d.Reason = ReasonDaily
		d.RetryAfter = u.DayTTL
	}
	return d
}

func verdict(w Window, count, limit int64, ttl time.Duration) Verdict {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	if ttl < 0 {
		ttl = 0
	}
	return Verdict{
		Window:     w,
		Allowed:    count <= limit,
		Count:      count,
		Limit:      limit,
		Remaining:  remaining,
		ResetAfter: ttl,
	}
}

// Limiter is the admission-control engine in front of the upstream call.
type Limiter struct {
	store    WindowStore
	limits   Limits
	clock    Clock
	logger   zerolog.Logger
	recorder MetricsRecorder
}

type Option func(*Limiter)

// WithClock overrides time.Now.
func WithClock(c Clock) Option {
	return func(l *Limiter) {
		l.clock = c
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithRecorder(rec MetricsRecorder) Option {
	return func(l *Limiter) {
		l.recorder = rec
	}
}

// New builds a Limiter over store. Both limits must be positive.
func New(store WindowStore, limits Limits, opts ...Option) (*Limiter, error) {
	if limits.Minute <= 0 || limits.Daily <= 0 {
		return nil, fmt.Errorf("%w: minute=%d daily=%d", ErrInvalidLimits, limits.Minute, limits.Daily)
	}
	l := &Limiter{
		store:    store,
		limits:   limits,
		clock:    time.Now,
		logger:   zerolog.Nop(),
		recorder: &NoOpMetricsRecorder{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Limits returns the configured limits.
func (l *Limiter) Limits() Limits {
	return l.limits
}

// Allow records one event for id and decides whether it may proceed.
//
// A store failure wrapped in ErrStoreUnavailable is not returned: the
// request fails open. An error is returned only when ctx itself is done or
// when a store reports a failure it did not classify.
func (l *Limiter) Allow(ctx context.Context, id ClientID) (Decision, error) {
	now := l.clock()

	usage, err := l.store.Record(ctx, id, now)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return Decision{}, ctx.Err()
	case errors.Is(err, ErrStoreUnavailable):
		return l.failOpen(id, now, err), nil
	default:
		return Decision{}, err
	}

	d := Evaluate(usage, l.limits, now)
	if !d.Allow {
		window := d.Minute.Window.Name
		if d.Minute.Allowed {
			window = d.Day.Window.Name
		}
		l.recorder.Add(MetricDenied, 1, map[string]string{"window": window})
		l.logger.Debug().
			Str("client_id", string(id)).
			Str("window", window).
			Int64("minute_count", usage.MinuteCount).
			Int64("day_count", usage.DayCount).
			Msg("request denied")
	}
	return d, nil
}

// failOpen lets the request through without a verdict.
func (l *Limiter) failOpen(id ClientID, now time.Time, err error) Decision {
	l.recorder.Add(MetricFailOpen, 1, nil)
	l.logger.Warn().
		Err(err).
		Str("client_id", string(id)).
		Msg("rate limit store unavailable, failing open")
	return Decision{Allow: true, FailOpen: true, Now: now}
}
