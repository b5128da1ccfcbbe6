package loop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepHost runs the pending callback when stepped.
type stepHost struct {
	pending  func(time.Time)
	requests int
	now      time.Time
}

func (h *stepHost) RequestFrame(fn func(time.Time)) {
	h.requests++
	h.pending = fn
}

func (h *stepHost) step() bool {
	fn := h.pending
	if fn == nil {
		return false
	}
	h.pending = nil
	h.now = h.now.Add(16 * time.Millisecond)
	fn(h.now)
	return true
}

func TestLoopRunsUntilStopped(t *testing.T) {
	h := &stepHost{}
	var ticks []time.Time
	l := New(h, func(now time.Time) { ticks = append(ticks, now) })
	l.Start(context.Background())
	require.Equal(t, 1, h.requests)

	for i := 0; i < 5; i++ {
		require.True(t, h.step())
	}
	assert.Len(t, ticks, 5)
	assert.Equal(t, uint64(5), l.Frames())
	assert.True(t, ticks[1].After(ticks[0]))

	l.Stop()
	assert.True(t, l.Stopped())
	assert.True(t, h.step(), "the already requested frame still runs")
	assert.False(t, h.step(), "but it requests nothing more")
	assert.Len(t, ticks, 5)
}

func TestLoopRequestsBeforeTick(t *testing.T) {
	h := &stepHost{}
	var requestsAtTick []int
	l := New(h, func(time.Time) { requestsAtTick = append(requestsAtTick, h.requests) })
	l.Start(context.Background())
	h.step()
	h.step()
	assert.Equal(t, []int{2, 3}, requestsAtTick)
}

func TestLoopStopFromTick(t *testing.T) {
	h := &stepHost{}
	var l *Loop
	n := 0
	l = New(h, func(time.Time) {
		n++
		if n == 3 {
			l.Stop()
		}
	})
	l.Start(context.Background())
	for h.step() {
	}
	assert.Equal(t, 3, n)
}

func TestLoopContextCancel(t *testing.T) {
	h := &stepHost{}
	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	l := New(h, func(time.Time) { n++ })
	l.Start(ctx)
	h.step()
	cancel()
	for h.step() {
	}
	assert.Equal(t, 1, n)
	assert.True(t, l.Stopped())
}
