package client

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/layer-3/warden/internal/logger"
)

// DefaultWatchdogInterval is how often the watchdog re-checks staleness
// between explicit triggers.
const DefaultWatchdogInterval = 5 * time.Second

// Session is the watchdog's view of the consumer's session state
type Session interface {
	// Active reports whether a session exists and when its token expires
	Active() (expiredAt time.Time, ok bool)

	// Refresh invokes the service's refresh-if-stale entry point
	Refresh(ctx context.Context) error
}

// Watchdog proactively refreshes the session token before a protected call
// would run into a stale one. Triggers may come from the periodic timer or
// from the consumer (e.g. on navigation); concurrent triggers for the same
// session collapse into one in-flight refresh and all wait for its result.
type Watchdog struct {
	session  Session
	interval time.Duration
	logger   logger.Logger

	group singleflight.Group
}

// NewWatchdog creates a watchdog over the given session
func NewWatchdog(session Session, interval time.Duration, l logger.Logger) *Watchdog {
	if interval <= 0 {
		interval = DefaultWatchdogInterval
	}
	if l == nil {
		l = logger.NewNop()
	}

	return &Watchdog{
		session:  session,
		interval: interval,
		logger:   l,
	}
}

// Run triggers the watchdog on every tick until ctx is cancelled. A trigger
// already in flight is allowed to complete; cancellation only stops new
// ticks.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Trigger(ctx); err != nil {
				w.logger.Warn("watchdog refresh failed", "error", err)
			}
		}
	}
}

// Trigger checks the session's token and refreshes it when stale. No-op
// without an active session or while the token is still fresh.
func (w *Watchdog) Trigger(ctx context.Context) error {
	expiredAt, ok := w.session.Active()
	if !ok {
		return nil
	}
	if !expiredAt.IsZero() && time.Now().Before(expiredAt) {
		return nil
	}

	_, err, _ := w.group.Do("refresh", func() (any, error) {
		return nil, w.session.Refresh(ctx)
	})

	return err
}
