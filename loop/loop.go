// Package loop drives a per-frame callback from a host that decides when
// frames are presented.
package loop

import (
	"context"
	"sync/atomic"
	"time"
)

// Host presents frames. RequestFrame registers fn to run once, at the next
// frame; a host keeps at most one pending callback.
type Host interface {
	RequestFrame(fn func(time.Time))
}

// Loop re-registers itself with its host every frame until stopped.
type Loop struct {
	host Host
	tick func(time.Time)

	ctx     context.Context
	stopped atomic.Bool
	frames  atomic.Uint64
}

// New returns a loop that calls tick once per host frame.
func New(host Host, tick func(time.Time)) *Loop {
	return &Loop{host: host, tick: tick}
}

// Start requests the first frame. Cancelling ctx has the same effect as Stop.
func (l *Loop) Start(ctx context.Context) {
	l.ctx = ctx
	l.stopped.Store(false)
	l.host.RequestFrame(l.frame)
}

// Stop prevents any further tick. A frame already registered with the host
// runs but does nothing.
func (l *Loop) Stop() { l.stopped.Store(true) }

// Stopped reports whether the loop has stopped.
func (l *Loop) Stopped() bool { return l.stopped.Load() }

// Frames returns the number of ticks run.
func (l *Loop) Frames() uint64 { return l.frames.Load() }

func (l *Loop) frame(now time.Time) {
	if l.stopped.Load() {
		return
	}
	if l.ctx != nil && l.ctx.Err() != nil {
		l.stopped.Store(true)
		return
	}
	l.host.RequestFrame(l.frame)
	l.frames.Add(1)
	l.tick(now)
}
