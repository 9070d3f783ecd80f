// Package limiter provides per-client admission control with two sliding
// windows: a short one (one minute) and a long one (one day).
//
// The primary entry point is Limiter.Allow:
//
//	dec, err := l.Allow(ctx, id)
//
// The returned Decision reports whether the request may proceed, the verdict
// for each window, and timing hints for callers that want to set rate-limit
// headers (see Decision.WriteHeaders).
//
// # Overview
//
// Every call records one event at the current time in both windows of the
// client, drops events that have slid out of each window, and counts what is
// left. The count includes the current event:
//
//   - a window allows while count <= limit, so the Nth request in a window
//     is allowed and the N+1th is denied;
//   - the minute window is checked first, so a request exceeding both is
//     reported as a per-minute denial;
//   - denied requests are recorded too and keep consuming quota.
//
// Unlike fixed windows, the boundaries move with the clock: a denied client
// becomes allowed again as soon as its oldest event in the window expires.
//
// # Core Types
//
//   - ClientID: the partition key, produced by ResolveClientID from the
//     explicit client header, X-Forwarded-For, or the peer address.
//   - Limits: the inclusive event cap per window.
//   - Usage: counts and TTLs reported by a WindowStore.
//   - Decision and Verdict: the outcome, derived by Evaluate.
//
// # Backends
//
// Two WindowStore implementations share the same Record contract:
//
//   - MemoryStore: a process-local map guarded by a mutex. Each replica
//     enforces its own quota. A Janitor sweeps idle clients to bound memory.
//
//   - RedisStore: two sorted sets per client, "<prefix>:minute:{<id>}" and
//     "<prefix>:day:{<id>}", updated by a single Lua script that prunes,
//     inserts, counts and refreshes the expiry of both keys. Keys expire
//     after their window, so Redis needs no janitor.
//
// # Context and Error Policy
//
// RedisStore bounds each script call with its own timeout and wraps every
// failure in ErrStoreUnavailable. The Limiter fails open on that error: the
// request is allowed, no headers are written, and the event is logged and
// counted under the "ratelimit.fail_open" metric. Cancellation of the
// caller's own context is returned as an error instead.
//
// # Configuration
//
// Both the Limiter and RedisStore use functional options:
//
//	store := NewRedisStore(client,
//		WithPrefix("cm"),
//		WithTimeout(500*time.Millisecond),
//		WithStoreRecorder(rec),
//	)
//	l, _ := New(store, Limits{Minute: 5, Daily: 50},
//		WithLogger(logger),
//		WithRecorder(rec),
//	)
//
// # Usage
//
// For a runnable example using MemoryStore, see ExampleLimiter in
// example_test.go.
package limiter
