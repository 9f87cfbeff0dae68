package sim

import (
	"time"

	"github.com/opd-ai/rist/native"
)

// statsObject is the engine-side object behind a native.Stats.
type statsObject struct {
	container native.StatsContainer
}

// StatsCallbackSet implements native.Library.
func (e *Engine) StatsCallbackSet(ctx native.Context, intervalMs int, cb native.StatsCallback, arg uintptr) int {
	if e.enter(OpStatsCallback) {
		return -1
	}
	c := e.context(ctx)
	if c == nil || intervalMs <= 0 {
		return -1
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.statsCb = cb
	c.statsArg = arg
	c.statsInterval = time.Duration(intervalMs) * time.Millisecond
	if c.started {
		c.startStatsLocked()
	}
	return 0
}

// StatsContainer implements native.Library.
func (e *Engine) StatsContainer(h native.Stats) (native.StatsContainer, bool) {
	s, ok := e.lookup(uintptr(h)).(*statsObject)
	if !ok {
		return native.StatsContainer{}, false
	}
	return s.container, true
}

// StatsFree implements native.Library.
func (e *Engine) StatsFree(h native.Stats) int {
	if _, ok := releaseAs[*statsObject](e, uintptr(h), "stats"); !ok {
		return -1
	}
	return 0
}

// DeliverStats hands sc to the callback registered on ctx, synchronously
// on the calling goroutine, and returns the callback's result. It returns
// -1 when no callback is registered.
func (e *Engine) DeliverStats(ctx native.Context, sc native.StatsContainer) int {
	c := e.context(ctx)
	if c == nil {
		return -1
	}
	c.mu.Lock()
	cb, arg := c.statsCb, c.statsArg
	c.mu.Unlock()
	if cb == nil {
		return -1
	}
	h := native.Stats(e.register(&statsObject{container: sc}))
	return cb(arg, h)
}

// EmitStats produces one round of stats for ctx immediately, as if the
// interval had elapsed.
func (e *Engine) EmitStats(ctx native.Context) {
	if c := e.context(ctx); c != nil {
		c.emitStats()
	}
}

func (c *simContext) startStatsLocked() {
	if c.statsRunning || c.statsCb == nil || !c.started {
		return
	}
	c.statsRunning = true
	c.wg.Add(1)
	go c.statsLoop(c.statsInterval)
}

func (c *simContext) statsLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.emitStats()
		}
	}
}

// emitStats snapshots the counters, resets the per-interval byte counts and
// invokes the callback once per container without holding the lock.
func (c *simContext) emitStats() {
	c.mu.Lock()
	if c.statsCb == nil || c.destroyed {
		c.mu.Unlock()
		return
	}
	cb, arg := c.statsCb, c.statsArg
	secs := c.statsInterval.Seconds()
	if secs <= 0 {
		secs = 1
	}

	var containers []native.StatsContainer
	switch c.role {
	case roleReceiver:
		containers = append(containers, native.StatsContainer{
			Type: native.StatsReceiverFlow,
			ReceiverFlow: native.ReceiverFlowStats{
				PeerCount: uint32(len(c.peers)),
				FlowID:    c.lastFlow,
				Bandwidth: uint64(float64(c.bytesIn*8) / secs),
				Received:  c.received,
				Missing:   uint32(c.lost),
				Lost:      uint32(c.lost),
				Quality:   quality(c.received, c.lost),
			},
		})
	case roleSender:
		bw := uint64(float64(c.bytesOut*8) / secs)
		for _, p := range c.peers {
			containers = append(containers, native.StatsContainer{
				Type: native.StatsSenderPeer,
				SenderPeer: native.SenderPeerStats{
					PeerID:    p.id,
					Bandwidth: bw,
					Sent:      p.sent,
					Quality:   100,
				},
			})
		}
	}
	c.bytesIn, c.bytesOut = 0, 0
	c.mu.Unlock()

	for _, sc := range containers {
		h := native.Stats(c.e.register(&statsObject{container: sc}))
		cb(arg, h)
	}
}

func quality(received, lost uint64) float64 {
	total := received + lost
	if total == 0 {
		return 100
	}
	return float64(received) * 100 / float64(total)
}
