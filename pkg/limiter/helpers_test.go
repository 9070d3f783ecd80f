package limiter

import (
	"context"
	"sync"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// failingStore simulates an unreachable backend.
type failingStore struct {
	err   error
	calls int
}

func (f *failingStore) Record(ctx context.Context, id ClientID, now time.Time) (Usage, error) {
	f.calls++
	return Usage{}, f.err
}

// MockRecorder captures metrics in memory for assertion
type MockRecorder struct {
	mu       sync.Mutex
	Counters map[string]float64
	Timings  map[string][]float64
}

func NewMockRecorder() *MockRecorder {
	return &MockRecorder{
		Counters: make(map[string]float64),
		Timings:  make(map[string][]float64),
	}
}

func (m *MockRecorder) Add(name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Counters[name] += value
}

func (m *MockRecorder) Observe(name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Timings[name] = append(m.Timings[name], value)
}

func (m *MockRecorder) Counter(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Counters[name]
}
