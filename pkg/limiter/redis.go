package limiter

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

//go:embed sliding_window.lua
var slidingWindowScript string

var slidingWindow = redis.NewScript(slidingWindowScript)

const (
	DefaultPrefix       = "cm"
	DefaultRedisTimeout = 500 * time.Millisecond
)

// RedisStore is a WindowStore backed by two Redis sorted sets per client.
// The prune, insert, count and expiry refresh for both windows run inside a
// single Lua script, so concurrent requests from any number of instances are
// linearized per client.
type RedisStore struct {
	client   redis.Scripter
	prefix   string
	timeout  time.Duration
	recorder MetricsRecorder
}

type RedisOption func(*RedisStore)

// WithPrefix sets the key namespace (default "cm").
func WithPrefix(prefix string) RedisOption {
	return func(r *RedisStore) {
		r.prefix = prefix
	}
}

// WithTimeout bounds each script execution (default 500ms).
func WithTimeout(d time.Duration) RedisOption {
	return func(r *RedisStore) {
		r.timeout = d
	}
}

// WithStoreRecorder injects a metrics backend.
func WithStoreRecorder(rec MetricsRecorder) RedisOption {
	return func(r *RedisStore) {
		r.recorder = rec
	}
}

// NewRedisStore builds a RedisStore on top of any go-redis client. It does
// not contact Redis; the script is loaded lazily on first use.
func NewRedisStore(client redis.Scripter, opts ...RedisOption) *RedisStore {
	r := &RedisStore{
		client:   client,
		prefix:   DefaultPrefix,
		timeout:  DefaultRedisTimeout,
		recorder: &NoOpMetricsRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key returns the Redis key holding the given window for id. The id is
// hash-tagged so both windows of a client share a Redis Cluster slot.
func (r *RedisStore) Key(w Window, id ClientID) string {
	return r.prefix + ":" + w.Name + ":{" + string(id) + "}"
}

func (r *RedisStore) Record(ctx context.Context, id ClientID, now time.Time) (Usage, error) {
	start := time.Now()
	tags := map[string]string{"backend": "redis"}
	defer func() {
		r.recorder.Observe(MetricLatency, time.Since(start).Seconds(), tags)
	}()
	r.recorder.Add(MetricCall, 1, tags)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	nowMs := now.UnixMilli()
	minuteMs := MinuteWindow.Duration.Milliseconds()
	dayMs := DayWindow.Duration.Milliseconds()

	// Same-millisecond events must stay distinct members of the set.
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()

	values, err := slidingWindow.Run(ctx, r.client,
		[]string{r.Key(MinuteWindow, id), r.Key(DayWindow, id)},
		nowMs,          // ARGV[1]
		member,         // ARGV[2]
		nowMs-minuteMs, // ARGV[3]
		minuteMs,       // ARGV[4]
		nowMs-dayMs,    // ARGV[5]
		dayMs,          // ARGV[6]
	).Int64Slice()
	if err != nil {
		return Usage{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if len(values) != 4 {
		return Usage{}, fmt.Errorf("%w: invalid lua response length %d", ErrStoreUnavailable, len(values))
	}

	return Usage{
		MinuteCount: values[0],
		DayCount:    values[1],
		MinuteTTL:   ttlFromMillis(values[2]),
		DayTTL:      ttlFromMillis(values[3]),
	}, nil
}

// ttlFromMillis maps PTTL replies to a duration; the negative sentinels for
// missing keys or keys without expiry become zero.
func ttlFromMillis(ms int64) time.Duration {
	if ms < 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
