package limiter

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultJanitorInterval is how often the janitor sweeps the memory store.
const DefaultJanitorInterval = time.Minute

// Sweeper evicts clients that have been idle longer than the day window.
type Sweeper interface {
	Sweep(now time.Time) int
}

// Janitor periodically sweeps a Sweeper. It only bounds memory; stale
// timestamps are already ignored by Record.
type Janitor struct {
	sweeper  Sweeper
	interval time.Duration
	clock    Clock
	logger   zerolog.Logger
	recorder MetricsRecorder
}

// NewJanitor returns a janitor for s. A non-positive interval selects
// DefaultJanitorInterval.
func NewJanitor(s Sweeper, interval time.Duration, logger zerolog.Logger, rec MetricsRecorder) *Janitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	if rec == nil {
		rec = &NoOpMetricsRecorder{}
	}
	return &Janitor{
		sweeper:  s,
		interval: interval,
		clock:    time.Now,
		logger:   logger.With().Str("component", "janitor").Logger(),
		recorder: rec,
	}
}

// Run sweeps on every tick until ctx is cancelled. It always returns nil so
// it can be handed straight to an errgroup.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Debug().Dur("interval", j.interval).Msg("janitor started")
	for {
		select {
		case <-ctx.Done():
			j.logger.Debug().Msg("janitor stopped")
			return nil
		case <-ticker.C:
			j.SweepOnce()
		}
	}
}

// SweepOnce runs a single sweep and returns the number of evicted clients.
func (j *Janitor) SweepOnce() int {
	evicted := j.sweeper.Sweep(j.clock())
	if evicted > 0 {
		j.recorder.Add(MetricJanitorEvicted, float64(evicted), map[string]string{"backend": "memory"})
		j.logger.Debug().Int("evicted", evicted).Msg("janitor swept idle clients")
	}
	return evicted
}
