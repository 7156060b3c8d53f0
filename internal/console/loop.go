package console

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const DefaultPollInterval = 3 * time.Second

// Loop drives a Reconciler on a fixed interval. Reschedule restarts the
// interval, optionally refreshing first. Failed cycles are logged and the
// previous snapshot stays in place.
type Loop struct {
	Reconciler *Reconciler
	Interval   time.Duration
	Log        zerolog.Logger

	once    sync.Once
	wake    chan struct{}
	mu      sync.Mutex
	nowFlag bool
}

func (l *Loop) init() {
	l.once.Do(func() { l.wake = make(chan struct{}, 1) })
}

// Reschedule restarts the timer. With refreshNow a cycle runs first.
// Calls made while a cycle is in flight coalesce.
func (l *Loop) Reschedule(refreshNow bool) {
	l.init()
	l.mu.Lock()
	l.nowFlag = l.nowFlag || refreshNow
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) takeNow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.nowFlag
	l.nowFlag = false
	return now
}

// Run refreshes immediately and then on every tick until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.init()
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	l.takeNow()
	l.cycle(ctx)

	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			l.cycle(ctx)
			timer.Reset(interval)
		case <-l.wake:
			if l.takeNow() {
				l.cycle(ctx)
			}
			timer.Stop()
			timer.Reset(interval)
		}
	}
}

func (l *Loop) cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := l.Reconciler.Refresh(ctx); err != nil && ctx.Err() == nil {
		l.Log.Warn().Str("component", "reconcile").Err(err).Msg("refresh failed")
	}
}
