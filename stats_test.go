package rist

import (
	"sync"
	"testing"

	"github.com/opd-ai/rist/native"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiverContainer(i uint32) native.StatsContainer {
	return native.StatsContainer{
		Type: native.StatsReceiverFlow,
		ReceiverFlow: native.ReceiverFlowStats{
			PeerCount:      i,
			FlowID:         i,
			Bandwidth:      uint64(i),
			RetryBandwidth: uint64(i),
			Sent:           uint64(i),
			Received:       uint64(i),
			Missing:        i,
			Reordered:      i,
			Recovered:      i,
			Lost:           i,
			Quality:        float64(i),
			RTT:            i,
		},
	}
}

func TestRawStatsEmptyUntilFirstCallback(t *testing.T) {
	cfg, _ := newTestConfig(t)
	recv, err := NewReceiverWithConfig(ProfileMain, cfg)
	require.NoError(t, err)
	defer recv.Close()

	_, ok := recv.RawStats()
	assert.False(t, ok)
}

func TestStatsCallbackDecodesMatchingVariant(t *testing.T) {
	cfg, eng := newTestConfig(t)
	recv, err := NewReceiverWithConfig(ProfileMain, cfg)
	require.NoError(t, err)
	defer recv.Close()
	nctx, err := recv.s.context()
	require.NoError(t, err)

	// A sender-shaped container is freed but not stored on a receiver.
	assert.Zero(t, eng.DeliverStats(nctx, native.StatsContainer{
		Type:       native.StatsSenderPeer,
		SenderPeer: native.SenderPeerStats{PeerID: 9},
	}))
	_, ok := recv.RawStats()
	assert.False(t, ok)

	assert.Zero(t, eng.DeliverStats(nctx, receiverContainer(7)))
	st, ok := recv.RawStats()
	require.True(t, ok)
	assert.Equal(t, uint32(7), st.FlowID)
	assert.Equal(t, float64(7), st.Quality)

	// Unknown discriminants are ignored.
	assert.Zero(t, eng.DeliverStats(nctx, native.StatsContainer{Type: 42}))
	st, _ = recv.RawStats()
	assert.Equal(t, uint32(7), st.FlowID)

	assert.Zero(t, eng.Live().Stats, "every container freed")
}

func TestSenderStatsFromEngine(t *testing.T) {
	_, send, eng := startedPair(t)

	for i := 0; i < 4; i++ {
		_, err := send.Send([]byte("data"))
		require.NoError(t, err)
	}
	nctx, err := send.s.context()
	require.NoError(t, err)
	eng.EmitStats(nctx)

	st, ok := send.RawStats()
	require.True(t, ok)
	assert.Equal(t, uint32(1), st.PeerID)
	assert.Equal(t, uint64(4), st.Sent)
	assert.Zero(t, eng.Live().Stats)
}

func TestCloseUnregistersStatsSink(t *testing.T) {
	cfg, eng := newTestConfig(t)
	recv, err := NewReceiverWithConfig(ProfileMain, cfg)
	require.NoError(t, err)

	key := recv.s.sinkKey
	require.NotNil(t, lookupSink(key))
	require.NoError(t, recv.Close())
	assert.Nil(t, lookupSink(key))
	assert.Zero(t, eng.Live().Stats)
}

func TestStatsCellNeverTorn(t *testing.T) {
	cfg, eng := newTestConfig(t)
	recv, err := NewReceiverWithConfig(ProfileMain, cfg)
	require.NoError(t, err)
	defer recv.Close()
	nctx, err := recv.s.context()
	require.NoError(t, err)

	const writes = 2000
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := uint32(1); i <= writes; i++ {
			eng.DeliverStats(nctx, receiverContainer(i))
		}
	}()

	torn := 0
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			st, ok := recv.RawStats()
			if !ok {
				continue
			}
			v := st.FlowID
			if st.PeerCount != v || st.Bandwidth != uint64(v) || st.Sent != uint64(v) ||
				st.Received != uint64(v) || st.Lost != v || st.Quality != float64(v) || st.RTT != v {
				torn++
			}
		}
	}()
	wg.Wait()

	assert.Zero(t, torn)
	st, ok := recv.RawStats()
	require.True(t, ok)
	assert.Equal(t, uint32(writes), st.FlowID, "last write wins")
}

func TestStatsCellLoadStore(t *testing.T) {
	var c statsCell[SenderStats]
	_, ok := c.load()
	assert.False(t, ok)

	c.store(SenderStats{PeerID: 1})
	c.store(SenderStats{PeerID: 2})
	v, ok := c.load()
	require.True(t, ok)
	assert.Equal(t, uint32(2), v.PeerID)
}
