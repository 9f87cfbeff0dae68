package metrics

import (
	"strings"
	"testing"

	"github.com/opd-ai/rist"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReceiver struct {
	st rist.ReceiverStats
	ok bool
}

func (f *fakeReceiver) RawStats() (rist.ReceiverStats, bool) { return f.st, f.ok }

type fakeSender struct {
	st rist.SenderStats
	ok bool
}

func (f *fakeSender) RawStats() (rist.SenderStats, bool) { return f.st, f.ok }

func TestReceiverCollectorSilentWithoutStats(t *testing.T) {
	c := NewReceiverCollector(&fakeReceiver{}, nil)
	assert.Zero(t, testutil.CollectAndCount(c))
}

func TestReceiverCollectorReportsSnapshot(t *testing.T) {
	src := &fakeReceiver{ok: true, st: rist.ReceiverStats{
		PeerCount: 2, Bandwidth: 8000000, Received: 500, Lost: 3, Quality: 99.4, RTT: 12,
	}}
	c := NewReceiverCollector(src, prometheus.Labels{"stream": "cam1"})

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	assert.Equal(t, 11, testutil.CollectAndCount(c))

	expected := `
# HELP rist_receiver_quality_percent Flow quality from 0 to 100.
# TYPE rist_receiver_quality_percent gauge
rist_receiver_quality_percent{stream="cam1"} 99.4
# HELP rist_receiver_packets_lost Packets lost after recovery.
# TYPE rist_receiver_packets_lost gauge
rist_receiver_packets_lost{stream="cam1"} 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"rist_receiver_quality_percent", "rist_receiver_packets_lost"))
}

func TestSenderCollectorReportsSnapshot(t *testing.T) {
	src := &fakeSender{ok: true, st: rist.SenderStats{PeerID: 1, Sent: 42, Retransmitted: 2, Quality: 100}}
	c := NewSenderCollector(src, nil)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	assert.Equal(t, 7, testutil.CollectAndCount(c))

	expected := `
# HELP rist_sender_packets_sent Packets sent.
# TYPE rist_sender_packets_sent gauge
rist_sender_packets_sent 42
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "rist_sender_packets_sent"))

	src.ok = false
	assert.Zero(t, testutil.CollectAndCount(c))
}
