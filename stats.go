package rist

import (
	"sync"
	"sync/atomic"

	"github.com/opd-ai/rist/native"
	"github.com/sirupsen/logrus"
)

// ReceiverStats is a receiver flow snapshot.
type ReceiverStats struct {
	PeerCount      uint32  `json:"peer_count"`
	FlowID         uint32  `json:"flow_id"`
	Bandwidth      uint64  `json:"bandwidth"`       // bits per second
	RetryBandwidth uint64  `json:"retry_bandwidth"` // bits per second
	Sent           uint64  `json:"sent"`            // NACKs sent
	Received       uint64  `json:"received"`
	Missing        uint32  `json:"missing"`
	Reordered      uint32  `json:"reordered"`
	Recovered      uint32  `json:"recovered"`
	Lost           uint32  `json:"lost"`
	Quality        float64 `json:"quality"` // 0 to 100
	RTT            uint32  `json:"rtt"`     // milliseconds
}

// SenderStats is a sender peer snapshot.
type SenderStats struct {
	PeerID         uint32  `json:"peer_id"`
	Bandwidth      uint64  `json:"bandwidth"`
	RetryBandwidth uint64  `json:"retry_bandwidth"`
	Sent           uint64  `json:"sent"`
	Received       uint64  `json:"received"`
	Retransmitted  uint64  `json:"retransmitted"`
	Quality        float64 `json:"quality"`
	RTT            uint32  `json:"rtt"`
}

// statsCell holds the latest snapshot. Readers see either the previous or
// the new value, never a mix.
type statsCell[T any] struct {
	p atomic.Pointer[T]
}

func (c *statsCell[T]) store(v T) {
	c.p.Store(&v)
}

func (c *statsCell[T]) load() (T, bool) {
	if v := c.p.Load(); v != nil {
		return *v, true
	}
	var zero T
	return zero, false
}

// statsSink is the destination of one session's stats callbacks.
type statsSink struct {
	role     role
	receiver statsCell[ReceiverStats]
	sender   statsCell[SenderStats]
}

// Sinks are addressed by integer key so no Go pointer crosses into the
// engine.
var (
	sinksMu  sync.RWMutex
	sinks    = make(map[uintptr]*statsSink)
	nextSink uintptr = 1
)

func registerSink(s *statsSink) uintptr {
	sinksMu.Lock()
	defer sinksMu.Unlock()

	key := nextSink
	nextSink++
	sinks[key] = s
	return key
}

func unregisterSink(key uintptr) {
	sinksMu.Lock()
	delete(sinks, key)
	sinksMu.Unlock()
}

func lookupSink(key uintptr) *statsSink {
	sinksMu.RLock()
	defer sinksMu.RUnlock()
	return sinks[key]
}

// decodeStats turns a container into a ReceiverStats or SenderStats value
// according to its discriminant. It returns nil for unknown types.
func decodeStats(sc native.StatsContainer) any {
	switch sc.Type {
	case native.StatsReceiverFlow:
		f := sc.ReceiverFlow
		return ReceiverStats{
			PeerCount:      f.PeerCount,
			FlowID:         f.FlowID,
			Bandwidth:      f.Bandwidth,
			RetryBandwidth: f.RetryBandwidth,
			Sent:           f.Sent,
			Received:       f.Received,
			Missing:        f.Missing,
			Reordered:      f.Reordered,
			Recovered:      f.Recovered,
			Lost:           f.Lost,
			Quality:        f.Quality,
			RTT:            f.RTT,
		}
	case native.StatsSenderPeer:
		p := sc.SenderPeer
		return SenderStats{
			PeerID:         p.PeerID,
			Bandwidth:      p.Bandwidth,
			RetryBandwidth: p.RetryBandwidth,
			Sent:           p.Sent,
			Received:       p.Received,
			Retransmitted:  p.Retransmitted,
			Quality:        p.Quality,
			RTT:            p.RTT,
		}
	}
	return nil
}

// statsCallback returns the callback registered with lib. It runs on an
// engine thread and always frees the container it is given.
func statsCallback(lib native.Library) native.StatsCallback {
	return func(key uintptr, h native.Stats) int {
		defer lib.StatsFree(h)

		sink := lookupSink(key)
		if sink == nil {
			return 0
		}
		sc, ok := lib.StatsContainer(h)
		if !ok {
			return 0
		}

		switch v := decodeStats(sc).(type) {
		case ReceiverStats:
			if sink.role == roleReceiver {
				sink.receiver.store(v)
			}
		case SenderStats:
			if sink.role == roleSender {
				sink.sender.store(v)
			}
		default:
			logrus.WithFields(logrus.Fields{
				"function":   "statsCallback",
				"stats_type": int(sc.Type),
			}).Debug("Ignoring stats container of unknown type")
		}
		return 0
	}
}
