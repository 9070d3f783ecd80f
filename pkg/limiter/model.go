package limiter

import (
	"context"
	"time"
)

// ClientID is the quota partition key. It is never empty.
type ClientID string

// UnknownClient pools every caller that could not be identified.
const UnknownClient ClientID = "unknown"

// Window is a trailing quota window.
type Window struct {
	Name     string
	Duration time.Duration
}

var (
	MinuteWindow = Window{Name: "minute", Duration: time.Minute}
	DayWindow    = Window{Name: "day", Duration: 24 * time.Hour}
)

// Limits is the inclusive number of events allowed per window.
type Limits struct {
	Minute int64
	Daily  int64
}

// Usage is what a WindowStore reports after recording one event: the counts
// include that event, and the TTLs are the time until each window resets.
type Usage struct {
	MinuteCount int64
	DayCount    int64
	MinuteTTL   time.Duration
	DayTTL      time.Duration
}

// WindowStore records one event for a client at now and reports the
// resulting usage of both windows. Implementations must perform the prune,
// append and count as a single atomic step per client.
type WindowStore interface {
	Record(ctx context.Context, id ClientID, now time.Time) (Usage, error)
}

// Clock returns the current time.
type Clock func() time.Time
