package limiter

import (
	"context"
	"sync"
	"time"
)

// windows holds the event timestamps, in Unix milliseconds, that fall inside
// each trailing window.
type windows struct {
	minute []int64
	day    []int64
}

// MemoryStore is an in-process sliding-window store.
//
// It is safe for concurrent use by multiple goroutines, but its state is local
// to the process and is not shared across replicas. Use RedisStore when you
// need a single quota across multiple instances.
type MemoryStore struct {
	mu      sync.Mutex
	clients map[ClientID]*windows
}

// NewMemoryStore constructs a MemoryStore with empty state.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clients: make(map[ClientID]*windows),
	}
}

// Record prunes stale timestamps from both windows of id, appends now and
// returns the resulting counts. It never fails.
func (m *MemoryStore) Record(ctx context.Context, id ClientID, now time.Time) (Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nowMs := now.UnixMilli()
	w, ok := m.clients[id]
	if !ok {
		w = &windows{}
		m.clients[id] = w
	}

	w.minute = append(prune(w.minute, nowMs-MinuteWindow.Duration.Milliseconds()), nowMs)
	w.day = append(prune(w.day, nowMs-DayWindow.Duration.Milliseconds()), nowMs)

	return Usage{
		MinuteCount: int64(len(w.minute)),
		DayCount:    int64(len(w.day)),
		MinuteTTL:   remainingTTL(w.minute, nowMs, MinuteWindow.Duration),
		DayTTL:      remainingTTL(w.day, nowMs, DayWindow.Duration),
	}, nil
}

// Sweep drops stale timestamps for every tracked client and forgets clients
// whose windows are both empty. It returns the number of clients removed.
// The lock is taken once per client so Record is never held up for a
// whole pass.
func (m *MemoryStore) Sweep(now time.Time) int {
	m.mu.Lock()
	ids := make([]ClientID, 0, len(m.clients))
	for id := range m.clients {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	nowMs := now.UnixMilli()
	evicted := 0
	for _, id := range ids {
		if m.sweepClient(id, nowMs) {
			evicted++
		}
	}
	return evicted
}

func (m *MemoryStore) sweepClient(id ClientID, nowMs int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.clients[id]
	if !ok {
		return false
	}
	w.minute = prune(w.minute, nowMs-MinuteWindow.Duration.Milliseconds())
	w.day = prune(w.day, nowMs-DayWindow.Duration.Milliseconds())
	if len(w.minute) == 0 && len(w.day) == 0 {
		delete(m.clients, id)
		return true
	}
	return false
}

// Len reports how many clients are currently tracked.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// prune keeps only timestamps strictly greater than cutoff, reusing ts.
// Callers may append slightly out of order under contention, so every entry
// is checked rather than stopping at the first fresh one.
func prune(ts []int64, cutoff int64) []int64 {
	kept := ts[:0]
	for _, t := range ts {
		if t > cutoff {
			kept = append(kept, t)
		}
	}
	return kept
}

func remainingTTL(ts []int64, nowMs int64, window time.Duration) time.Duration {
	if len(ts) == 0 {
		return 0
	}
	oldest := ts[0]
	for _, t := range ts[1:] {
		if t < oldest {
			oldest = t
		}
	}
	ttl := window - time.Duration(nowMs-oldest)*time.Millisecond
	if ttl < 0 {
		ttl = 0
	}
	return ttl
}
